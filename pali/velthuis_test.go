// Copyright 2024 The dpd-db Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pali_test

import (
	"testing"

	"github.com/windwerfer/dpd-db/pali"
)

func TestToVelthuis(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   string
		want string
	}{
		{"nibbāna", "nibbaana"},
		{"saṃsāra", "sa.msaara"},
		{"ñāṇa", "~naa.na"},
		{"aṅga", `a"nga`},
		{"ṭhāna", ".thaana"},
		{"dhamma", "dhamma"},
		{"", ""},
	}

	for _, tc := range testCases {
		if got := pali.ToVelthuis(tc.in); got != tc.want {
			t.Errorf("ToVelthuis(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}
