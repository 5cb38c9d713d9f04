package session_test

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/bigbell/bellhop/internal/bellhop/session"
)

// Both persistent drivers must satisfy the same contract; every subtest below
// runs against each of them.
func drivers(t *testing.T) map[string]session.Store {
	t.Helper()

	sqlite, err := session.NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]session.Store{
		"memory": session.NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStore_AbsentSessionIsZero(t *testing.T) {
	for name, store := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			sess, err := store.Get(context.Background(), "nobody")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if !reflect.DeepEqual(sess, session.Session{}) {
				t.Errorf("got %+v, want the zero session", sess)
			}
		})
	}
}

func TestStore_SetMergesPartialFields(t *testing.T) {
	ctx := context.Background()
	for name, store := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Set(ctx, "alice", session.Fields{
				Step:     session.StepSelectJob,
				Customer: "goognu",
				Jobs:     []string{"goognu-deploy", "goognu-test"},
			}); err != nil {
				t.Fatalf("Set: %v", err)
			}

			// A later partial update leaves the untouched fields intact.
			if err := store.Set(ctx, "alice", session.Fields{
				Step:    session.StepJobAction,
				JobName: "goognu-deploy",
			}); err != nil {
				t.Fatalf("Set: %v", err)
			}

			sess, err := store.Get(ctx, "alice")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			want := session.Session{
				Step:     session.StepJobAction,
				Customer: "goognu",
				Jobs:     []string{"goognu-deploy", "goognu-test"},
				JobName:  "goognu-deploy",
			}
			if !reflect.DeepEqual(sess, want) {
				t.Errorf("got %+v, want %+v", sess, want)
			}
		})
	}
}

func TestStore_JobsAreReplacedNotAppended(t *testing.T) {
	ctx := context.Background()
	for name, store := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			store.Set(ctx, "alice", session.Fields{Jobs: []string{"a", "b", "c"}})
			store.Set(ctx, "alice", session.Fields{Jobs: []string{"d"}})

			sess, err := store.Get(ctx, "alice")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if !reflect.DeepEqual(sess.Jobs, []string{"d"}) {
				t.Errorf("jobs: got %v, want [d]", sess.Jobs)
			}
		})
	}
}

func TestStore_ClearResetsEverything(t *testing.T) {
	ctx := context.Background()
	for name, store := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			store.Set(ctx, "alice", session.Fields{
				Step:     session.StepJobAction,
				Customer: "goognu",
				Jobs:     []string{"goognu-deploy"},
				JobName:  "goognu-deploy",
			})

			if err := store.Clear(ctx, "alice"); err != nil {
				t.Fatalf("Clear: %v", err)
			}

			sess, err := store.Get(ctx, "alice")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if sess.Step != session.StepNone || sess.Customer != "" || sess.JobName != "" || len(sess.Jobs) != 0 {
				t.Errorf("got %+v, want the zero session", sess)
			}
		})
	}
}

func TestStore_SendersAreIsolated(t *testing.T) {
	ctx := context.Background()
	for name, store := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			store.Set(ctx, "alice", session.Fields{Step: session.StepSelectJob, Customer: "goognu"})
			store.Set(ctx, "bob", session.Fields{Step: session.StepSelectCustomer})

			alice, _ := store.Get(ctx, "alice")
			bob, _ := store.Get(ctx, "bob")
			if alice.Step != session.StepSelectJob || bob.Step != session.StepSelectCustomer {
				t.Errorf("alice=%+v bob=%+v", alice, bob)
			}
			if bob.Customer != "" {
				t.Errorf("bob inherited alice's customer: %+v", bob)
			}
		})
	}
}

func TestStore_RecordExchange(t *testing.T) {
	ctx := context.Background()
	for name, store := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.RecordExchange(ctx, "alice", "hi", "Welcome!"); err != nil {
				t.Fatalf("RecordExchange: %v", err)
			}
		})
	}
}

func TestMemoryStore_ExchangeLog(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()

	store.RecordExchange(ctx, "alice", "hi", "Welcome!")
	store.RecordExchange(ctx, "alice", "goognu", "Select Job")

	got := store.Exchanges()
	if len(got) != 2 {
		t.Fatalf("got %d exchanges, want 2", len(got))
	}
	want := session.Exchange{Sender: "alice", Inbound: "hi", Reply: "Welcome!"}
	if got[0] != want {
		t.Errorf("exchange[0]: got %+v, want %+v", got[0], want)
	}
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.db")

	store, err := session.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Set(ctx, "alice", session.Fields{
		Step: session.StepSelectJob,
		Jobs: []string{"goognu-deploy"},
	}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopening runs migrations again; they must be idempotent, and the data
	// must still be there.
	reopened, err := session.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	sess, err := reopened.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sess.Step != session.StepSelectJob || len(sess.Jobs) != 1 {
		t.Errorf("got %+v after reopen", sess)
	}
}

func TestOpen(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		store, err := session.Open(session.Options{Backend: session.BackendMemory})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		defer store.Close()
		if _, ok := store.(*session.MemoryStore); !ok {
			t.Errorf("got %T", store)
		}
	})

	t.Run("sqlite is the default", func(t *testing.T) {
		store, err := session.Open(session.Options{
			DatabasePath: filepath.Join(t.TempDir(), "sessions.db"),
		})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		defer store.Close()
		if _, ok := store.(*session.SQLiteStore); !ok {
			t.Errorf("got %T", store)
		}
	})

	t.Run("sqlite without a path", func(t *testing.T) {
		if _, err := session.Open(session.Options{Backend: session.BackendSQLite}); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("redis without an address", func(t *testing.T) {
		if _, err := session.Open(session.Options{Backend: session.BackendRedis}); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		if _, err := session.Open(session.Options{Backend: "etcd"}); err == nil {
			t.Fatal("expected an error")
		}
	})
}
