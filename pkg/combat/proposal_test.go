package combat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProposal_SparFormsFriendlySession(t *testing.T) {
	ctx := context.Background()
	e, rec := newTestEngine(t, alwaysMiss)
	a := register(t, e, newBody("a"))
	b := register(t, e, newBody("b"))

	p, err := e.Propose(ctx, ProposalSpar, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, []Proposal{p}, e.Proposals("b"))

	assert.ErrorIs(t, e.Accept(ctx, p.ID, "a"), ErrInvalidTarget, "only the recipient answers")
	require.NoError(t, e.Accept(ctx, p.ID, "b"))

	s := a.Session()
	require.NotNil(t, s)
	assert.Same(t, s, b.Session())
	assert.True(t, s.Friendly())
	assert.Equal(t, StateActive, s.State())
	assert.Empty(t, e.Proposals("b"))
	assert.Len(t, rec.OfType(EventProposalAccepted), 1)

	_, err = e.Propose(ctx, ProposalSpar, "a", "b")
	assert.ErrorIs(t, err, ErrInvalidTarget, "already sparring")
}

func TestProposal_TruceEndsSparring(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, alwaysMiss)
	register(t, e, newBody("a"))
	register(t, e, newBody("b"))
	s := engage(t, e, "a", "b", true)

	p, err := e.Propose(ctx, ProposalTruce, "a", "b")
	require.NoError(t, err)
	require.NoError(t, e.Accept(ctx, p.ID, "b"))

	assert.Equal(t, StateEnded, s.State())
	assert.Equal(t, ReasonTruce, s.EndReason())
}

func TestProposal_TruceNeedsSparring(t *testing.T) {
	e, _ := newTestEngine(t, alwaysMiss)
	register(t, e, newBody("a"))
	register(t, e, newBody("b"))
	engage(t, e, "a", "b", false)

	_, err := e.Propose(context.Background(), ProposalTruce, "a", "b")
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestProposal_SurrenderFormsGrapple(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, alwaysMiss)
	a := register(t, e, newBody("a"))
	b := register(t, e, newBody("b"))
	engage(t, e, "a", "b", false)

	p, err := e.Propose(ctx, ProposalSurrender, "b", "a")
	require.NoError(t, err)
	require.NoError(t, e.Accept(ctx, p.ID, "a"))

	gs := a.Session().Grapples()
	require.Len(t, gs, 1)
	assert.Same(t, a, gs[0].Holder)
	assert.Same(t, b, gs[0].Held)
}

func TestProposal_RejectAndExpire(t *testing.T) {
	ctx := context.Background()
	e, rec := newTestEngine(t, alwaysMiss)
	register(t, e, newBody("a"))
	register(t, e, newBody("b"))

	p, err := e.Propose(ctx, ProposalSpar, "a", "b")
	require.NoError(t, err)
	require.NoError(t, e.Reject(ctx, p.ID, "b"))
	assert.ErrorIs(t, e.Accept(ctx, p.ID, "b"), ErrUnknownProposal)
	assert.Len(t, rec.OfType(EventProposalRejected), 1)

	p, err = e.Propose(ctx, ProposalSpar, "a", "b")
	require.NoError(t, err)
	for i := 0; i < e.Settings().ProposalTTL-1; i++ {
		e.Tick(ctx)
	}
	assert.Len(t, e.Proposals("b"), 1, "still open one tick before expiry")

	e.Tick(ctx)
	assert.Empty(t, e.Proposals("b"))
	expired := rec.OfType(EventProposalExpired)
	require.Len(t, expired, 1)
	assert.Equal(t, p.ID, expired[0].Detail["proposal_id"])
}

func TestProposal_NewerReplacesOlder(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, alwaysMiss)
	register(t, e, newBody("a"))
	register(t, e, newBody("b"))

	_, err := e.Propose(ctx, ProposalSpar, "a", "b")
	require.NoError(t, err)
	second, err := e.Propose(ctx, ProposalSpar, "a", "b")
	require.NoError(t, err)

	assert.Equal(t, []Proposal{second}, e.Proposals("b"))
}

func TestParseProposalKind(t *testing.T) {
	k, err := ParseProposalKind(" Truce ")
	require.NoError(t, err)
	assert.Equal(t, ProposalTruce, k)

	_, err = ParseProposalKind("duel")
	assert.Error(t, err)
}
