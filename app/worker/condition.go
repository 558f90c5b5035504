// Copyright 2026 Northern.tech AS
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package worker

import (
	"strconv"
	"strings"

	"github.com/postai/flows/model"
)

// evaluateCondition compares the resolved operands. Numeric comparisons of
// operands which are not numbers are false.
func evaluateCondition(conditionType, left, right string) bool {
	switch conditionType {
	case model.ConditionEquals, "":
		return left == right
	case model.ConditionNotEquals:
		return left != right
	case model.ConditionContains:
		return strings.Contains(left, right)
	case model.ConditionGreaterThan, model.ConditionLessThan:
		l, errL := strconv.ParseFloat(strings.TrimSpace(left), 64)
		r, errR := strconv.ParseFloat(strings.TrimSpace(right), 64)
		if errL != nil || errR != nil {
			return false
		}
		if conditionType == model.ConditionGreaterThan {
			return l > r
		}
		return l < r
	case model.ConditionIsEmpty:
		return strings.TrimSpace(left) == ""
	case model.ConditionIsNotEmpty:
		return strings.TrimSpace(left) != ""
	}
	return false
}

func branchOf(result bool) string {
	if result {
		return model.BranchTrue
	}
	return model.BranchFalse
}
