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

package pali

import "strings"

// velthuis maps romanized Pāli characters to the ASCII Velthuis scheme:
// doubled vowels for length, a prefix character for the diacritic.
var velthuis = strings.NewReplacer(
	"ā", "aa", "ī", "ii", "ū", "uu",
	"ṅ", `"n`, "ñ", "~n",
	"ṭ", ".t", "ḍ", ".d", "ṇ", ".n",
	"ḷ", ".l", "ṃ", ".m", "ṁ", `"m`,
	"Ā", "AA", "Ī", "II", "Ū", "UU",
	"Ṅ", `"N`, "Ñ", "~N",
	"Ṭ", ".T", "Ḍ", ".D", "Ṇ", ".N",
	"Ḷ", ".L", "Ṃ", ".M",
)

// ToVelthuis transliterates romanized Pāli into the Velthuis ASCII
// scheme. Characters outside the Pāli alphabet pass through unchanged.
func ToVelthuis(s string) string {
	return velthuis.Replace(s)
}
