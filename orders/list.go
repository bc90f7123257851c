// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package orders

import (
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// PerPage is the size of an order table page.
const PerPage = 15

const dateLayout = "2006-01-02"

// Filter narrows an order table. From and To are calendar days, both
// included.
type Filter struct {
	Status Status
	From   *time.Time
	To     *time.Time
}

// ParseFilter reads status, from and to.
func ParseFilter(v url.Values) (Filter, error) {
	var f Filter
	if s := v.Get("status"); s != "" {
		st, err := ParseStatus(s)
		if err != nil {
			return f, err
		}
		f.Status = st
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		raw := v.Get(p.name)
		if raw == "" {
			continue
		}
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			return f, errors.Wrapf(err, "invalid %s date", p.name)
		}
		*p.dst = &d
	}
	return f, nil
}

// Match reports whether p passes the filter. The from day starts at 00:00 and
// the to day lasts until the next midnight.
func (f Filter) Match(p Preview) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	created := p.CreationDate.Time
	if f.From != nil && created.Before(dayStart(*f.From, created.Location())) {
		return false
	}
	if f.To != nil && !created.Before(dayStart(*f.To, created.Location()).AddDate(0, 0, 1)) {
		return false
	}
	return true
}

func dayStart(d time.Time, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

// FilterPreviews returns the previews matching f, in their original order.
func FilterPreviews(previews []Preview, f Filter) []Preview {
	out := make([]Preview, 0, len(previews))
	for _, p := range previews {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

// SortByCreation returns a copy of previews, newest first unless fromOldest.
func SortByCreation(previews []Preview, fromOldest bool) []Preview {
	out := make([]Preview, len(previews))
	copy(out, previews)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].CreationDate.Time, out[j].CreationDate.Time
		if fromOldest {
			return a.Before(b)
		}
		return a.After(b)
	})
	return out
}

// ParseOldest reads the oldest flag; anything unparsable means newest first.
func ParseOldest(v url.Values) bool {
	b, _ := strconv.ParseBool(v.Get("oldest"))
	return b
}
