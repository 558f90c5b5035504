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

package mongo

import (
	"testing"

	"github.com/mendersoftware/go-lib-micro/mongo/migrate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsOrdered(t *testing.T) {
	list := migrations(nil, "flows")
	require.NotEmpty(t, list)
	for i := 1; i < len(list); i++ {
		assert.True(t, migrate.VersionIsLess(list[i-1].Version(), list[i].Version()),
			"migration %s is not newer than %s", list[i].Version(), list[i-1].Version())
	}

	target, err := migrate.NewVersion(DbVersion)
	require.NoError(t, err)
	assert.Equal(t, *target, list[len(list)-1].Version())
}
