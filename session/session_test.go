package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pis-bookshop/storefront/storage"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func token(t *testing.T, exp time.Time) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "a@b.c",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func TestDecide(t *testing.T) {
	exp := epoch.Add(time.Hour)
	assert.Equal(t, Valid, Decide(exp, epoch, 10*time.Minute))
	assert.Equal(t, Valid, Decide(exp, exp.Add(-10*time.Minute), 10*time.Minute))
	assert.Equal(t, Renew, Decide(exp, exp.Add(-9*time.Minute), 10*time.Minute))
	assert.Equal(t, Renew, Decide(exp, exp, 10*time.Minute))
	assert.Equal(t, Expired, Decide(exp, exp.Add(time.Nanosecond), 10*time.Minute))
	assert.Equal(t, Expired, Decide(exp, exp.Add(time.Second), 10*time.Minute))
}

func TestTokenExpiry(t *testing.T) {
	exp := epoch.Add(42 * time.Minute)
	got, err := TokenExpiry(token(t, exp))
	require.NoError(t, err)
	assert.True(t, exp.Equal(got))

	_, err = TokenExpiry("not-a-token")
	assert.Error(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "x"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = TokenExpiry(noExp)
	assert.Error(t, err)
}

func TestParseLoginResponse(t *testing.T) {
	u, err := ParseLoginResponse("a@b.c", "tok;ADMIN")
	require.NoError(t, err)
	assert.Equal(t, User{Email: "a@b.c", Token: "tok", Role: RoleAdmin}, u)

	_, err = ParseLoginResponse("a@b.c", "tok")
	assert.ErrorIs(t, err, ErrLoginResponse)

	_, err = ParseLoginResponse("a@b.c", "tok;root")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestRoleAllows(t *testing.T) {
	assert.True(t, RoleAdmin.Allows(RoleEmployee))
	assert.True(t, RoleEmployee.Allows(RoleEmployee))
	assert.False(t, RoleEmployee.Allows(RoleAdmin))
	assert.False(t, RoleUser.Allows(RoleEmployee))
	assert.True(t, RoleUser.Allows(RoleUser))
	assert.False(t, Role("").Allows(RoleUser))
	assert.True(t, Role("").Allows(""))
	assert.False(t, RoleUser.IsStaff())
}

func TestLoadSaveClear(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()

	_, err := Load(ctx, store)
	assert.ErrorIs(t, err, ErrNoUser)

	u := User{Email: "a@b.c", Token: "t", Role: RoleUser}
	require.NoError(t, Save(ctx, store, u))
	got, err := Load(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, u, got)

	require.NoError(t, Clear(ctx, store))
	_, err = Load(ctx, store)
	assert.ErrorIs(t, err, ErrNoUser)

	require.NoError(t, store.Set(ctx, StorageKey, []byte("{")))
	_, err = Load(ctx, store)
	assert.ErrorIs(t, err, ErrNoUser)
}

func TestVerifyExpiredLogsOut(t *testing.T) {
	ctx := context.Background()
	m := NewManager(storage.NewMemory(), nil, 0)
	require.NoError(t, m.Login(ctx, "s1", User{Email: "a@b.c", Token: token(t, epoch), Role: RoleUser}, epoch))

	d, err := m.Verify(ctx, "s1", epoch.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, Expired, d)

	_, err = m.User(ctx, "s1")
	assert.ErrorIs(t, err, ErrNoUser)
	res, ok := m.LastResult("s1")
	require.True(t, ok)
	assert.Equal(t, Expired, res.Decision)
}

func TestVerifyRenews(t *testing.T) {
	ctx := context.Background()
	fresh := token(t, epoch.Add(2*time.Hour))
	var got User
	m := NewManager(storage.NewMemory(), RenewerFunc(func(_ context.Context, u User) (string, error) {
		got = u
		return fresh, nil
	}), 10*time.Minute)
	require.NoError(t, m.Login(ctx, "s1", User{Email: "a@b.c", Token: token(t, epoch.Add(5*time.Minute)), Role: RoleEmployee}, epoch))

	d, err := m.Verify(ctx, "s1", epoch)
	require.NoError(t, err)
	assert.Equal(t, Renew, d)
	assert.Equal(t, "a@b.c", got.Email)

	u, err := m.User(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, fresh, u.Token)
	assert.Equal(t, RoleEmployee, u.Role)

	d, err = m.Verify(ctx, "s1", epoch)
	require.NoError(t, err)
	assert.Equal(t, Valid, d)
}

func TestVerifyRenewFailureKeepsUser(t *testing.T) {
	ctx := context.Background()
	old := token(t, epoch.Add(5*time.Minute))
	m := NewManager(storage.NewMemory(), RenewerFunc(func(context.Context, User) (string, error) {
		return "", errors.New("backend down")
	}), 10*time.Minute)
	require.NoError(t, m.Login(ctx, "s1", User{Email: "a@b.c", Token: old}, epoch))

	d, err := m.Verify(ctx, "s1", epoch)
	assert.Error(t, err)
	assert.Equal(t, Renew, d)

	u, err := m.User(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, old, u.Token)
	res, _ := m.LastResult("s1")
	assert.Contains(t, res.Err, "backend down")
}

func TestVerifyWithoutUser(t *testing.T) {
	m := NewManager(storage.NewMemory(), nil, 0)
	_, err := m.Verify(context.Background(), "nobody", epoch)
	assert.ErrorIs(t, err, ErrNoUser)
}

func TestSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	m := NewManager(storage.NewMemory(), nil, 0)
	require.NoError(t, m.Login(ctx, "s1", User{Email: "a@b.c", Token: "t1"}, epoch))
	_, err := m.User(ctx, "s2")
	assert.ErrorIs(t, err, ErrNoUser)

	require.NoError(t, m.Logout(ctx, "s1"))
	_, err = m.User(ctx, "s1")
	assert.ErrorIs(t, err, ErrNoUser)
}

func TestActiveForgetsIdleSessions(t *testing.T) {
	m := NewManager(storage.NewMemory(), nil, 0)
	m.Touch("old", epoch)
	m.Touch("b", epoch.Add(time.Hour))
	m.Touch("a", epoch.Add(time.Hour))

	assert.Equal(t, []string{"a", "b"}, m.Active(epoch.Add(time.Minute)))
	assert.Equal(t, []string{"a", "b"}, m.Active(epoch))
}

func TestActiveRunsForgetHooks(t *testing.T) {
	m := NewManager(storage.NewMemory(), nil, 0)
	var forgotten []string
	m.OnForget(func(sid string) { forgotten = append(forgotten, sid) })
	m.Touch("old", epoch)
	m.Touch("new", epoch.Add(time.Hour))

	assert.Equal(t, []string{"new"}, m.Active(epoch.Add(time.Minute)))
	assert.Equal(t, []string{"old"}, forgotten)

	m.Active(epoch.Add(time.Minute))
	assert.Equal(t, []string{"old"}, forgotten)
}

func TestLocksAreReleased(t *testing.T) {
	ctx := context.Background()
	m := NewManager(storage.NewMemory(), nil, 0)
	for _, sid := range []string{"s1", "s2", "s3"} {
		require.NoError(t, m.Login(ctx, sid, User{Email: "a@b.c", Token: token(t, epoch.Add(time.Hour))}, epoch))
		_, err := m.Verify(ctx, sid, epoch)
		require.NoError(t, err)
		_, err = m.Verify(ctx, "anonymous-"+sid, epoch)
		require.ErrorIs(t, err, ErrNoUser)
	}
	require.NoError(t, m.Logout(ctx, "s1"))

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Empty(t, m.locks)
}

func TestConcurrentVerifySharesLock(t *testing.T) {
	ctx := context.Background()
	var calls int32
	m := NewManager(storage.NewMemory(), RenewerFunc(func(context.Context, User) (string, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(time.Millisecond)
		return token(t, epoch.Add(time.Hour)), nil
	}), 10*time.Minute)
	require.NoError(t, m.Login(ctx, "s1", User{Email: "a@b.c", Token: token(t, epoch.Add(time.Minute))}, epoch))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Verify(ctx, "s1", epoch)
		}()
	}
	wg.Wait()

	// the first verify renews, the others find a fresh token
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Empty(t, m.locks)
}

func TestWatcherSweep(t *testing.T) {
	ctx := context.Background()
	var renewed int32
	m := NewManager(storage.NewMemory(), RenewerFunc(func(context.Context, User) (string, error) {
		atomic.AddInt32(&renewed, 1)
		return token(t, epoch.Add(time.Hour)), nil
	}), 10*time.Minute)
	require.NoError(t, m.Login(ctx, "renew", User{Email: "a@b.c", Token: token(t, epoch.Add(time.Minute))}, epoch))
	require.NoError(t, m.Login(ctx, "expire", User{Email: "d@e.f", Token: token(t, epoch.Add(-time.Minute))}, epoch))
	m.Touch("anonymous", epoch)

	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	w := &Watcher{Manager: m, Log: log, Now: func() time.Time { return epoch }}
	w.Sweep(ctx)

	assert.EqualValues(t, 1, atomic.LoadInt32(&renewed))
	_, err := m.User(ctx, "expire")
	assert.ErrorIs(t, err, ErrNoUser)
	for _, e := range hook.AllEntries() {
		assert.NotEqual(t, logrus.WarnLevel, e.Level, e.Message)
	}
}

func TestWatcherStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewManager(storage.NewMemory(), nil, 0)
	log, _ := test.NewNullLogger()
	w := &Watcher{Manager: m, Interval: time.Millisecond, Log: log}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}
