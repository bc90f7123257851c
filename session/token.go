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

package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// DefaultRenewBefore is how long before expiry a token gets renewed.
const DefaultRenewBefore = 10 * time.Minute

// Decision is the outcome of a token check.
type Decision int

const (
	Valid Decision = iota
	Renew
	Expired
)

func (d Decision) String() string {
	switch d {
	case Valid:
		return "valid"
	case Renew:
		return "renew"
	case Expired:
		return "expired"
	}
	return "unknown"
}

func (d Decision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Decision) UnmarshalText(b []byte) error {
	for _, c := range []Decision{Valid, Renew, Expired} {
		if c.String() == string(b) {
			*d = c
			return nil
		}
	}
	return errors.Errorf("session: unknown decision %q", b)
}

// Decide says what to do with a token expiring at expiry. It is renewed once
// less than renewBefore remains, up to and including the expiry instant.
func Decide(expiry, now time.Time, renewBefore time.Duration) Decision {
	switch {
	case now.After(expiry):
		return Expired
	case expiry.Sub(now) < renewBefore:
		return Renew
	default:
		return Valid
	}
}

// TokenExpiry reads the exp claim of token. The signature is not checked here;
// the backend verifies every token it receives.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, errors.Wrap(err, "session: could not parse token")
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("session: token has no expiry")
	}
	return claims.ExpiresAt.Time, nil
}
