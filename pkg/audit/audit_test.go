package audit

import (
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flywheel-mesh/zonemesh/internal/redact"
	"github.com/flywheel-mesh/zonemesh/pkg/cryptosign"
)

func TestAppendChainsOntoGenesis(t *testing.T) {
	l := NewLog(redact.Default(), nil)
	r, err := l.Append(Entry{Actor: "principal:alice", Zone: "zone:prod", Correlation: "corr-1", OccurredAtMS: 1000})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), r.Seq)
	assert.Equal(t, GenesisHash, r.PrevHash)
	assert.NotEmpty(t, r.RecordHash)
}

func TestAppendChainsSuccessiveRecords(t *testing.T) {
	l := NewLog(redact.Default(), nil)
	first, err := l.Append(Entry{Actor: "a", Zone: "z", Correlation: "c1", OccurredAtMS: 1})
	require.NoError(t, err)
	second, err := l.Append(Entry{Actor: "a", Zone: "z", Correlation: "c2", OccurredAtMS: 2})
	require.NoError(t, err)

	assert.Equal(t, first.RecordHash, second.PrevHash)
	assert.Equal(t, uint64(2), second.Seq)
}

func TestAppendRedactsSecretBearingFields(t *testing.T) {
	l := NewLog(redact.Default(), nil)
	r, err := l.Append(Entry{
		Actor: "a", Zone: "z", Correlation: "c1", OccurredAtMS: 1,
		Note: "failed with Bearer abc123XYZtoken987",
	})
	require.NoError(t, err)
	assert.Contains(t, r.Note, "[REDACTED]")
	assert.NotContains(t, r.Note, "abc123XYZtoken987")
	assert.True(t, r.Redacted)
}

func TestAppendSignsWhenSignerConfigured(t *testing.T) {
	signer, err := cryptosign.NewEd25519Signer("key-1")
	require.NoError(t, err)
	l := NewLog(redact.Default(), signer)

	r, err := l.Append(Entry{Actor: "a", Zone: "z", Correlation: "c1", OccurredAtMS: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, r.Signature)
	assert.Equal(t, "key-1", r.SignatureKeyID)

	ok, err := cryptosign.Verify(signer.PublicKeyHex(), r.Signature, []byte(r.RecordHash))
	require.NoError(t, err)
	assert.True(t, ok)
}

// Each record's prev_hash must equal the canonical hash of its predecessor.
func TestVerifyChainAcceptsValidChain(t *testing.T) {
	l := NewLog(redact.Default(), nil)
	for i := 0; i < 5; i++ {
		_, err := l.Append(Entry{Actor: "a", Zone: "z", Correlation: "c", OccurredAtMS: uint64(i)})
		require.NoError(t, err)
	}
	assert.NoError(t, VerifyChain(l.Records()))
}

func TestVerifyChainDetectsTamperedPrevHash(t *testing.T) {
	l := NewLog(redact.Default(), nil)
	_, err := l.Append(Entry{Actor: "a", Zone: "z", Correlation: "c1", OccurredAtMS: 1})
	require.NoError(t, err)
	_, err = l.Append(Entry{Actor: "a", Zone: "z", Correlation: "c2", OccurredAtMS: 2})
	require.NoError(t, err)

	records := l.Records()
	records[1].PrevHash = "tampered"
	assert.Error(t, VerifyChain(records))
}

func TestVerifyChainDetectsTamperedPayload(t *testing.T) {
	l := NewLog(redact.Default(), nil)
	_, err := l.Append(Entry{Actor: "a", Zone: "z", Correlation: "c1", OccurredAtMS: 1})
	require.NoError(t, err)

	records := l.Records()
	records[0].Actor = "someone-else"
	assert.Error(t, VerifyChain(records))
}

func TestPostgresLogAppendInitializesZoneHeadOnFirstUse(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT seq, head FROM audit_zone_heads WHERE zone = $1 FOR UPDATE`)).
		WithArgs("zone:prod").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO audit_zone_heads`)).
		WithArgs("zone:prod", GenesisHash).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO audit_records`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE audit_zone_heads SET seq = $1, head = $2 WHERE zone = $3`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	l := NewPostgresLog(db, redact.Default(), nil)
	r, err := l.Append("zone:prod", Entry{Actor: "a", Correlation: "c1", OccurredAtMS: 1})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), r.Seq)
	assert.Equal(t, GenesisHash, r.PrevHash)
	require.NoError(t, mock.ExpectationsWereMet())
}
