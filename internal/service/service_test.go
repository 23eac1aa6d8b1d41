package service_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"msgcore/internal/broadcast"
	"msgcore/internal/domain"
	"msgcore/internal/observability/metrics"
	"msgcore/internal/push"
	"msgcore/internal/store"
)

func TestMain(m *testing.M) {
	metrics.MustRegister("msgcore-test")
	os.Exit(m.Run())
}

var dbSeq atomic.Int64

func setupStore(t *testing.T) *store.Store {
	t.Helper()

	dsn := fmt.Sprintf("file:svc%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	st := store.New(db)
	if err := st.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return st
}

func seedUser(t *testing.T, st *store.Store, username string, role domain.Role) *domain.User {
	t.Helper()
	now := time.Now().UTC()
	u := &domain.User{
		ID:          uuid.New(),
		Username:    username,
		DisplayName: strings.ToUpper(username[:1]) + username[1:],
		Role:        role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := st.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u
}

func seedGroup(t *testing.T, st *store.Store, active bool, members ...*domain.User) *domain.Group {
	t.Helper()
	now := time.Now().UTC()
	g := &domain.Group{
		ID:        uuid.New(),
		Name:      "group-" + uuid.NewString()[:8],
		IsActive:  active,
		CreatedAt: now,
	}
	if err := st.Groups().Create(context.Background(), g); err != nil {
		t.Fatalf("seed group: %v", err)
	}
	for _, m := range members {
		gm := &domain.GroupMember{GroupID: g.ID, UserID: m.ID, JoinedAt: now}
		if err := st.Groups().AddMember(context.Background(), gm); err != nil {
			t.Fatalf("seed member: %v", err)
		}
	}
	return g
}

func setToken(t *testing.T, st *store.Store, id domain.UserID, token string) {
	t.Helper()
	if err := st.Users().SetPushToken(context.Background(), id, &token); err != nil {
		t.Fatalf("set push token: %v", err)
	}
}

// failingBroadcast wraps the memory store and fails publishes under a path
// prefix. An empty prefix fails nothing.
type failingBroadcast struct {
	*broadcast.MemoryStore
	failPrefix string
}

func (f *failingBroadcast) Publish(ctx context.Context, path string, value any) error {
	if f.failPrefix != "" && strings.HasPrefix(path, f.failPrefix) {
		return fmt.Errorf("broadcast store unavailable")
	}
	return f.MemoryStore.Publish(ctx, path, value)
}

// recordingGateway captures notifications and fails chosen tokens. Safe for
// the concurrent calls the delivery fan-out makes.
type recordingGateway struct {
	mu         sync.Mutex
	failTokens map[string]bool
	calls      []pushCall
}

type pushCall struct {
	tokens []string
	title  string
	body   string
	data   map[string]string
}

func (g *recordingGateway) Notify(_ context.Context, tokens []string, title, body string, data map[string]string) []push.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, pushCall{tokens: tokens, title: title, body: body, data: data})
	out := make([]push.Result, 0, len(tokens))
	for _, tok := range tokens {
		if g.failTokens[tok] {
			out = append(out, push.Result{Token: tok, OK: false, Err: fmt.Errorf("unreachable")})
			continue
		}
		out = append(out, push.Result{Token: tok, OK: true})
	}
	return out
}

func (g *recordingGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func (g *recordingGateway) sentTo(token string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range g.calls {
		for _, tok := range c.tokens {
			if tok == token {
				return true
			}
		}
	}
	return false
}
