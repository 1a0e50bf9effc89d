package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/droplog/internal/domain"
	"github.com/aryan0dhankhar/droplog/internal/repository"
	"github.com/aryan0dhankhar/droplog/internal/security/capability"
	"github.com/aryan0dhankhar/droplog/pkg/database"
)

const (
	scenarioNS = "a1b2c3d4-0000-4000-8000-000000000000"
	otherNS    = "0badc0de-0000-4000-8000-000000000000"
)

// touchStore fails the test on any storage access
type touchStore struct{ t *testing.T }

func (s touchStore) Exists(ctx context.Context, ns string) (bool, error) {
	s.t.Fatalf("Exists called for %q", ns)
	return false, nil
}
func (s touchStore) Append(ctx context.Context, ns, c string) (*domain.Record, error) {
	s.t.Fatalf("Append called for %q", ns)
	return nil, nil
}
func (s touchStore) List(ctx context.Context, ns string) ([]domain.Record, error) {
	s.t.Fatalf("List called for %q", ns)
	return nil, nil
}
func (s touchStore) Destroy(ctx context.Context, ns string) error {
	s.t.Fatalf("Destroy called for %q", ns)
	return nil
}
func (s touchStore) Ping(ctx context.Context) error { return nil }

func newCodec(t *testing.T) capability.Codec {
	t.Helper()
	c, err := capability.New(capability.SchemeSealed, "service-test-secret")
	require.NoError(t, err)
	return c
}

func newService(t *testing.T, ledger domain.ClaimLedger) *NamespaceService {
	t.Helper()
	store, err := repository.NewSQLiteTenantStore(filepath.Join(t.TempDir(), "dbs"), nil)
	require.NoError(t, err)
	return NewNamespaceService(store, newCodec(t), ledger, nil)
}

func TestScenario_MultiClaimantRace(t *testing.T) {
	s := newService(t, nil)
	ctx := context.Background()

	st, err := s.Status(ctx, scenarioNS, "")
	require.NoError(t, err)
	assert.Equal(t, &Status{Exists: false, IsOwner: false, CanGenerateBearer: true}, st)

	t1, err := s.IssueBearer(ctx, scenarioNS)
	require.NoError(t, err)
	t2, err := s.IssueBearer(ctx, scenarioNS)
	require.NoError(t, err, "second claim before any append also succeeds")
	assert.NotEqual(t, t1, t2)

	rec, err := s.Append(ctx, scenarioNS, t1, "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.ID)
	assert.Equal(t, "hello", rec.Content)

	// both holders are owners
	for _, tok := range []string{t1, t2} {
		st, err := s.Status(ctx, scenarioNS, tok)
		require.NoError(t, err)
		assert.Equal(t, &Status{Exists: true, IsOwner: true, CanGenerateBearer: false}, st)
	}

	rec, err = s.Append(ctx, scenarioNS, t2, "from t2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.ID)

	_, err = s.IssueBearer(ctx, scenarioNS)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestConcurrentIssueBeforeAppend_AllSucceed(t *testing.T) {
	s := newService(t, nil)
	ctx := context.Background()
	codec := s.tokens

	const callers = 6
	tokens := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := s.IssueBearer(ctx, scenarioNS)
			assert.NoError(t, err)
			tokens[i] = tok
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, tok := range tokens {
		assert.True(t, codec.Validate(tok, scenarioNS))
		assert.False(t, seen[tok], "tokens must be distinct")
		seen[tok] = true
	}
}

func TestInvalidFormat_NeverTouchesStorage(t *testing.T) {
	s := NewNamespaceService(touchStore{t}, newCodec(t), nil, nil)
	ctx := context.Background()

	bad := []string{"", "not-a-uuid", "a1b2c3d4-0000-4000-8000-00000000000", "{a1b2c3d4-0000-4000-8000-000000000000}",
		"urn:uuid:a1b2c3d4-0000-4000-8000-000000000000", "a1b2c3d4000040008000000000000000", "g1b2c3d4-0000-4000-8000-000000000000"}
	for _, id := range bad {
		_, err := s.Status(ctx, id, "")
		assert.ErrorIs(t, err, domain.ErrInvalidFormat, id)
		_, err = s.IssueBearer(ctx, id)
		assert.ErrorIs(t, err, domain.ErrInvalidFormat, id)
		_, err = s.Append(ctx, id, "tok", "c")
		assert.ErrorIs(t, err, domain.ErrInvalidFormat, id)
		_, err = s.List(ctx, id)
		assert.ErrorIs(t, err, domain.ErrInvalidFormat, id)
		assert.ErrorIs(t, s.Destroy(ctx, id, "tok"), domain.ErrInvalidFormat, id)
	}
}

func TestUnauthorized_NoSideEffects(t *testing.T) {
	s := newService(t, nil)
	ctx := context.Background()

	otherTok, err := s.IssueBearer(ctx, otherNS)
	require.NoError(t, err)

	for _, tok := range []string{"", "garbage", otherTok} {
		_, err := s.Append(ctx, scenarioNS, tok, "x")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		assert.ErrorIs(t, s.Destroy(ctx, scenarioNS, tok), domain.ErrUnauthorized)
	}

	st, err := s.Status(ctx, scenarioNS, otherTok)
	require.NoError(t, err)
	assert.False(t, st.Exists)
	assert.False(t, st.IsOwner)
}

func TestUppercaseIdentifierIsItsOwnNamespace(t *testing.T) {
	s := newService(t, nil)
	ctx := context.Background()
	upper := "A1B2C3D4-0000-4000-8000-00000000000A"

	tok, err := s.IssueBearer(ctx, upper)
	require.NoError(t, err)
	_, err = s.Append(ctx, upper, tok, "shout")
	require.NoError(t, err)

	recs, err := s.List(ctx, upper)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestDestroy_ResetsNamespace(t *testing.T) {
	s := newService(t, nil)
	ctx := context.Background()

	tok, err := s.IssueBearer(ctx, scenarioNS)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := s.Append(ctx, scenarioNS, tok, "x")
		require.NoError(t, err)
	}

	require.NoError(t, s.Destroy(ctx, scenarioNS, tok))

	st, err := s.Status(ctx, scenarioNS, tok)
	require.NoError(t, err)
	assert.False(t, st.Exists)
	assert.True(t, st.CanGenerateBearer)
	assert.True(t, st.IsOwner, "tokens are not revoked by destroy")

	recs, err := s.List(ctx, scenarioNS)
	require.NoError(t, err)
	assert.Empty(t, recs)

	rec, err := s.Append(ctx, scenarioNS, tok, "again")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.ID)
}

func TestClaimLedger_MakesIssuanceExclusive(t *testing.T) {
	ctx := context.Background()
	pool, err := database.NewConnectionPool(ctx, database.SQLiteConfig(filepath.Join(t.TempDir(), "_claims.db")), nil)
	require.NoError(t, err)
	ledger, err := repository.NewSQLClaimLedger(ctx, pool, nil)
	require.NoError(t, err)
	defer ledger.Close()

	s := newService(t, ledger)

	tok, err := s.IssueBearer(ctx, scenarioNS)
	require.NoError(t, err)

	_, err = s.IssueBearer(ctx, scenarioNS)
	assert.ErrorIs(t, err, domain.ErrForbidden, "second issuance blocked even before append")

	require.NoError(t, s.Destroy(ctx, scenarioNS, tok))

	_, err = s.IssueBearer(ctx, scenarioNS)
	assert.NoError(t, err, "destroy releases the claim")
}

type failingCodec struct {
	capability.Codec
	fail bool
}

func (c *failingCodec) Issue(namespace string) (string, error) {
	if c.fail {
		return "", errors.New("entropy exhausted")
	}
	return c.Codec.Issue(namespace)
}

func TestClaimLedger_ReleasedWhenIssueFails(t *testing.T) {
	ctx := context.Background()
	pool, err := database.NewConnectionPool(ctx, database.SQLiteConfig(filepath.Join(t.TempDir(), "_claims.db")), nil)
	require.NoError(t, err)
	ledger, err := repository.NewSQLClaimLedger(ctx, pool, nil)
	require.NoError(t, err)
	defer ledger.Close()

	store, err := repository.NewSQLiteTenantStore(filepath.Join(t.TempDir(), "dbs"), nil)
	require.NoError(t, err)
	codec := &failingCodec{Codec: newCodec(t), fail: true}
	s := NewNamespaceService(store, codec, ledger, nil)

	_, err = s.IssueBearer(ctx, scenarioNS)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrForbidden)

	codec.fail = false
	tok, err := s.IssueBearer(ctx, scenarioNS)
	require.NoError(t, err, "failed issuance must not keep the claim")
	assert.NotEmpty(t, tok)
}
