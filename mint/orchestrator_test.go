package mint

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbtc21/bitcoinfaces/metadata"
	"github.com/pbtc21/bitcoinfaces/replay"
	"github.com/pbtc21/bitcoinfaces/stacks"
	"github.com/pbtc21/bitcoinfaces/types"
)

type stubVerifier struct {
	verdict types.Verdict
	calls   int
}

func (s *stubVerifier) Verify(_ context.Context, _ string) types.Verdict {
	s.calls++
	return s.verdict
}

type stubAssets struct {
	asset *types.Asset
	err   error
	calls int
}

func (s *stubAssets) FetchFace(_ context.Context, _ string) (*types.Asset, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.asset, nil
}

type stubBroadcaster struct {
	txid  string
	err   error
	calls int
}

func (s *stubBroadcaster) BroadcastMint(_ context.Context, _, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.txid, nil
}

type failingStore struct{}

func (failingStore) Reserve(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func (failingStore) Release(context.Context, string) error {
	return errors.New("redis down")
}

func validVerifier(sender string) *stubVerifier {
	return &stubVerifier{verdict: types.Verdict{Valid: true, Sender: sender}}
}

func goodAssets() *stubAssets {
	return &stubAssets{asset: &types.Asset{SVG: "<svg/>", HashSeed: []int{1, 2}}}
}

func newTestOrchestrator(v Verifier, a AssetProvider, opts ...Option) *Orchestrator {
	return New(v, a, metadata.NewBuilder("https://bitcoinfaces.xyz"), "https://faces.example.com/", opts...)
}

func TestMintInvalidPayment(t *testing.T) {
	verifier := &stubVerifier{verdict: types.Verdict{Reason: types.ReasonWrongStatus, Detail: "pending"}}
	assets := goodAssets()
	o := newTestOrchestrator(verifier, assets)

	outcome := o.Mint(context.Background(), "abc")
	assert.Equal(t, types.StatusPaymentInvalid, outcome.Status)
	assert.Equal(t, types.ReasonWrongStatus, outcome.Verdict.Reason)
	assert.Equal(t, "0xabc", outcome.PaymentTxID)
	assert.Zero(t, assets.calls, "no asset fetch for invalid payment")
}

func TestMintPreviewWithoutBroadcaster(t *testing.T) {
	o := newTestOrchestrator(validVerifier("SP_ALICE"), goodAssets())

	outcome := o.Mint(context.Background(), "0xabc")
	assert.Equal(t, types.StatusPreview, outcome.Status)
	assert.Equal(t, "SP_ALICE", outcome.Sender)
	assert.Empty(t, outcome.MintTxID)
	require.NotNil(t, outcome.Metadata)
	assert.Equal(t, "Bitcoin Face #SP_ALICE", outcome.Metadata.Name)
	require.NotNil(t, outcome.Asset)
	assert.Equal(t, "<svg/>", outcome.Asset.SVG)
}

func TestMintMinted(t *testing.T) {
	broadcaster := &stubBroadcaster{txid: "0xmint123"}
	o := newTestOrchestrator(validVerifier("SP_ALICE"), goodAssets(),
		WithBroadcaster(broadcaster))

	outcome := o.Mint(context.Background(), "abc")
	assert.Equal(t, types.StatusMinted, outcome.Status)
	assert.Equal(t, "0xmint123", outcome.MintTxID)
	assert.Equal(t, "0xabc", outcome.PaymentTxID)
	assert.Equal(t, 1, broadcaster.calls)
}

func TestMintBroadcastFailureKeepsPaymentTxID(t *testing.T) {
	broadcaster := &stubBroadcaster{err: errors.New("ConflictingNonceInMempool")}
	o := newTestOrchestrator(validVerifier("SP_ALICE"), goodAssets(),
		WithBroadcaster(broadcaster))

	outcome := o.Mint(context.Background(), "abc")
	assert.Equal(t, types.StatusMintFailed, outcome.Status)
	assert.Equal(t, "0xabc", outcome.PaymentTxID)
	assert.Equal(t, "SP_ALICE", outcome.Sender)
	assert.Contains(t, outcome.FailureDetail, "ConflictingNonceInMempool")
	assert.False(t, outcome.BroadcastRejected, "transport fault is not a node rejection")
}

func TestMintBroadcastRejectionIsFlagged(t *testing.T) {
	broadcaster := &stubBroadcaster{err: &stacks.RejectionError{
		Message: "transaction rejected",
		Reason:  "NotEnoughFunds",
	}}
	o := newTestOrchestrator(validVerifier("SP_ALICE"), goodAssets(),
		WithBroadcaster(broadcaster))

	outcome := o.Mint(context.Background(), "0xabc")
	assert.Equal(t, types.StatusMintFailed, outcome.Status)
	assert.True(t, outcome.BroadcastRejected)
	assert.Contains(t, outcome.FailureDetail, "NotEnoughFunds")
}

func TestMintAssetFailureAfterValidPayment(t *testing.T) {
	assets := &stubAssets{err: errors.New("generator down")}
	o := newTestOrchestrator(validVerifier("SP_ALICE"), assets)

	outcome := o.Mint(context.Background(), "0xabc")
	assert.Equal(t, types.StatusMintFailed, outcome.Status)
	assert.Equal(t, "0xabc", outcome.PaymentTxID)
	assert.Contains(t, outcome.FailureDetail, "generator down")
}

func TestMintMetadataURL(t *testing.T) {
	o := newTestOrchestrator(validVerifier("SP_ALICE"), goodAssets())
	assert.Equal(t, "https://faces.example.com/metadata/SP_ALICE", o.MetadataURL("SP_ALICE"))
}

func TestMintAtMostOnce(t *testing.T) {
	o := newTestOrchestrator(validVerifier("SP_ALICE"), goodAssets(),
		WithBroadcaster(&stubBroadcaster{txid: "0xmint123"}),
		WithConsumedStore(replay.NewMemoryStore(0)))

	first := o.Mint(context.Background(), "0xabc")
	assert.Equal(t, types.StatusMinted, first.Status)

	second := o.Mint(context.Background(), "0xabc")
	assert.Equal(t, types.StatusPaymentInvalid, second.Status)
	assert.Equal(t, types.ReasonAlreadyConsumed, second.Verdict.Reason)
}

func TestMintAtMostOnceNormalizesBeforeReserving(t *testing.T) {
	o := newTestOrchestrator(validVerifier("SP_ALICE"), goodAssets(),
		WithBroadcaster(&stubBroadcaster{txid: "0xmint123"}),
		WithConsumedStore(replay.NewMemoryStore(0)))

	first := o.Mint(context.Background(), "abc")
	assert.Equal(t, types.StatusMinted, first.Status)

	// same proof with the 0x prefix must hit the same reservation
	second := o.Mint(context.Background(), "0xabc")
	assert.Equal(t, types.ReasonAlreadyConsumed, second.Verdict.Reason)
}

func TestMintReleasesReservationOnInvalidVerdict(t *testing.T) {
	verifier := &stubVerifier{verdict: types.Verdict{Reason: types.ReasonNotFound}}
	store := replay.NewMemoryStore(0)
	o := newTestOrchestrator(verifier, goodAssets(), WithConsumedStore(store))

	outcome := o.Mint(context.Background(), "0xabc")
	assert.Equal(t, types.StatusPaymentInvalid, outcome.Status)

	// the proof is free again: a later valid payment with the same id
	// is not blocked by the failed attempt
	ok, err := store.Reserve(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMintReleasesReservationOnAssetFailure(t *testing.T) {
	assets := &stubAssets{err: errors.New("generator down")}
	store := replay.NewMemoryStore(0)
	o := newTestOrchestrator(validVerifier("SP_ALICE"), assets, WithConsumedStore(store))

	outcome := o.Mint(context.Background(), "0xabc")
	assert.Equal(t, types.StatusMintFailed, outcome.Status)

	ok, err := store.Reserve(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMintKeepsReservationOnBroadcastFailure(t *testing.T) {
	store := replay.NewMemoryStore(0)
	o := newTestOrchestrator(validVerifier("SP_ALICE"), goodAssets(),
		WithBroadcaster(&stubBroadcaster{err: errors.New("rejected")}),
		WithConsumedStore(store))

	outcome := o.Mint(context.Background(), "0xabc")
	assert.Equal(t, types.StatusMintFailed, outcome.Status)

	// the broadcast attempt consumed the proof
	ok, err := store.Reserve(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMintStoreOutageFailsClosed(t *testing.T) {
	verifier := validVerifier("SP_ALICE")
	o := newTestOrchestrator(verifier, goodAssets(),
		WithConsumedStore(failingStore{}))

	outcome := o.Mint(context.Background(), "0xabc")
	assert.Equal(t, types.StatusPaymentInvalid, outcome.Status)
	assert.Equal(t, types.ReasonTransportError, outcome.Verdict.Reason)
	assert.Zero(t, verifier.calls, "no verification when the store is unreachable")
}
