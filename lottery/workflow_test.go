package lottery

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/airchains-network/lottery-dapp/contract"
	"github.com/airchains-network/lottery-dapp/internal/format"
	"github.com/airchains-network/lottery-dapp/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enterEffect(c *fakeChain, from common.Address, req wallet.TxRequest) {
	if req.Data != nil {
		return
	}
	c.participants = append(c.participants, from)
	c.credit(contractAddr, req.Value.Int64())
}

func TestConnectProjectsState(t *testing.T) {
	cases := []struct {
		name    string
		active  bool
		manager common.Address
		account common.Address
		want    UIState
	}{
		{"manager of active lottery", true, addrA, addrA, ActiveManager},
		{"participant of active lottery", true, addrA, addrB, ActiveParticipant},
		{"inactive lottery", false, addrA, addrA, Inactive},
		{"no manager yet", true, common.Address{}, addrB, ActiveParticipant},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chain := newFakeChain(contract.VariantRound)
			chain.active = tc.active
			chain.manager = tc.manager
			h := newHarness(t, chain, newFakeProvider(chain, tc.account), Options{})

			require.NoError(t, h.workflow.Connect(context.Background()))

			view := h.workflow.View()
			assert.True(t, view.Connected)
			assert.Equal(t, tc.account, view.Account)
			assert.Equal(t, tc.want, view.State)
			assert.Contains(t, h.display.messages(), "Wallet connected on Sepolia!")
		})
	}
}

func TestConnectWithoutProvider(t *testing.T) {
	chain := newFakeChain(contract.VariantTicket)
	h := newHarness(t, chain, nil, Options{})

	err := h.workflow.Connect(context.Background())
	require.ErrorIs(t, err, ErrNoProvider)
	assert.Equal(t, KindNoProvider, Classify(err))

	_, err = h.workflow.EnterLottery(context.Background())
	assert.ErrorIs(t, err, ErrNoProvider)
	assert.False(t, h.workflow.View().Connected)
}

func TestConnectUserRejected(t *testing.T) {
	chain := newFakeChain(contract.VariantTicket)
	provider := newFakeProvider(chain, addrA)
	provider.requestErr = fmt.Errorf("%w: declined", wallet.ErrUserRejected)
	h := newHarness(t, chain, provider, Options{})

	err := h.workflow.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindUserRejected, Classify(err))
	assert.Equal(t, "Connection rejected by user", h.display.last().Message)
	assert.False(t, h.workflow.View().Connected)
}

func TestConnectSwitchesNetwork(t *testing.T) {
	chain := newFakeChain(contract.VariantTicket)
	provider := newFakeProvider(chain, addrA)
	provider.chainID = big.NewInt(1)
	h := newHarness(t, chain, provider, Options{})

	require.NoError(t, h.workflow.Connect(context.Background()))
	assert.Equal(t, 0, h.workflow.View().ChainID.Cmp(sepolia))
}

func TestConnectWrongNetwork(t *testing.T) {
	chain := newFakeChain(contract.VariantTicket)
	provider := newFakeProvider(chain, addrA)
	provider.chainID = big.NewInt(1)
	provider.switchErr = wallet.ErrSwitchUnsupported
	h := newHarness(t, chain, provider, Options{})

	err := h.workflow.Connect(context.Background())
	var wrong *WrongNetworkError
	require.ErrorAs(t, err, &wrong)
	assert.Equal(t, int64(1), wrong.Have.Int64())
	assert.Equal(t, KindWrongNetwork, Classify(err))
	assert.False(t, h.workflow.View().Connected)

	// A declined switch is still a network problem, not a plain rejection
	provider.switchErr = wallet.ErrUserRejected
	err = h.workflow.Connect(context.Background())
	assert.Equal(t, KindWrongNetwork, Classify(err))
}

func TestManagerFirstGate(t *testing.T) {
	chain := newFakeChain(contract.VariantTicket)
	chain.manager = addrA
	provider := newFakeProvider(chain, addrB)
	h := newHarness(t, chain, provider, Options{RequireManagerFirst: true})
	ctx := context.Background()

	err := h.workflow.Connect(ctx)
	require.ErrorIs(t, err, ErrManagerFirst)
	assert.False(t, h.workflow.View().Connected)
	assert.Len(t, h.display.notes, 1)
	assert.Equal(t, "Please connect with Manager account first!", h.display.last().Message)

	provider.setAccounts(addrA)
	require.NoError(t, h.workflow.Connect(ctx))
	assert.True(t, h.store.managerConnected)

	provider.setAccounts(addrB)
	h.workflow.Disconnect()
	require.NoError(t, h.workflow.Connect(ctx))
	assert.Equal(t, ActiveParticipant, h.workflow.View().State)
}

func TestOperationsRequireConnection(t *testing.T) {
	chain := newFakeChain(contract.VariantRound)
	h := newHarness(t, chain, newFakeProvider(chain, addrA), Options{})
	ctx := context.Background()

	_, err := h.workflow.EnterLottery(ctx)
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = h.workflow.StartLottery(ctx)
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = h.workflow.PickWinner(ctx)
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = h.workflow.Refresh(ctx)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, h.workflow.RefreshBalance(ctx), ErrNotConnected)
	assert.Equal(t, 0, h.provider.sentCount())
}

func TestEnterLottery(t *testing.T) {
	chain := newFakeChain(contract.VariantTicket)
	chain.manager = addrA
	provider := newFakeProvider(chain, addrB)
	provider.onSend = enterEffect
	h := newHarness(t, chain, provider, Options{})
	ctx := context.Background()
	require.NoError(t, h.workflow.Connect(ctx))

	res, err := h.workflow.EnterLottery(ctx)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NotEqual(t, common.Hash{}, res.TxHash)

	require.Len(t, provider.sent, 1)
	assert.Equal(t, contractAddr, provider.sent[0].To)
	assert.Equal(t, big.NewInt(2_000_000_000_000_000), provider.sent[0].Value)
	assert.Equal(t, uint64(100_000), provider.sent[0].Gas)

	view := h.workflow.View()
	assert.Equal(t, []common.Address{addrB}, view.Snapshot.Participants)
	assert.Equal(t, int64(2_000_000_000_000_000), view.Balance.Int64())
	assert.Equal(t, ActiveParticipant, view.State)
	assert.Equal(t, Status{"Successfully entered the lottery!", SeveritySuccess}, h.display.last())
}

func TestEnterLotteryHonoursConfiguredValue(t *testing.T) {
	chain := newFakeChain(contract.VariantRound)
	chain.active = true
	provider := newFakeProvider(chain, addrB)
	h := newHarness(t, chain, provider, Options{EntryValue: big.NewInt(5), EntryGasLimit: 21_000})
	ctx := context.Background()
	require.NoError(t, h.workflow.Connect(ctx))

	_, err := h.workflow.EnterLottery(ctx)
	require.NoError(t, err)
	require.Len(t, provider.sent, 1)
	assert.Equal(t, big.NewInt(5), provider.sent[0].Value)
	assert.Equal(t, uint64(21_000), provider.sent[0].Gas)
}

func TestEnterRevertedOnChainKeepsState(t *testing.T) {
	chain := newFakeChain(contract.VariantTicket)
	chain.manager = addrA
	provider := newFakeProvider(chain, addrB)
	provider.onSend = enterEffect
	h := newHarness(t, chain, provider, Options{})
	ctx := context.Background()
	require.NoError(t, h.workflow.Connect(ctx))
	before := h.workflow.View()

	provider.revertReason = "Minimum entry is 0.002 ETH"
	res, err := h.workflow.EnterLottery(ctx)

	var reverted *RevertedError
	require.ErrorAs(t, err, &reverted)
	assert.Equal(t, "Minimum entry is 0.002 ETH", reverted.Reason)
	assert.NotEqual(t, common.Hash{}, reverted.TxHash)
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Equal(t, "Minimum entry is 0.002 ETH", res.RevertReason)

	after := h.workflow.View()
	assert.Equal(t, before.State, after.State)
	assert.Empty(t, after.Snapshot.Participants)
	assert.Equal(t, Status{"Transaction reverted: Minimum entry is 0.002 ETH", SeverityError}, h.display.last())
}

func TestEnterRevertedAtEstimation(t *testing.T) {
	chain := newFakeChain(contract.VariantTicket)
	provider := newFakeProvider(chain, addrB)
	h := newHarness(t, chain, provider, Options{})
	ctx := context.Background()
	require.NoError(t, h.workflow.Connect(ctx))

	provider.sendErr = errors.New("execution reverted")
	_, err := h.workflow.EnterLottery(ctx)

	var reverted *RevertedError
	require.ErrorAs(t, err, &reverted)
	assert.Equal(t, common.Hash{}, reverted.TxHash)
	assert.Equal(t, "Transaction reverted - check contract requirements", h.display.last().Message)
}

func TestEnterUserRejected(t *testing.T) {
	chain := newFakeChain(contract.VariantTicket)
	provider := newFakeProvider(chain, addrB)
	h := newHarness(t, chain, provider, Options{})
	ctx := context.Background()
	require.NoError(t, h.workflow.Connect(ctx))

	provider.sendErr = wallet.ErrUserRejected
	_, err := h.workflow.EnterLottery(ctx)
	assert.Equal(t, KindUserRejected, Classify(err))
	assert.Equal(t, Status{"Transaction rejected by user", SeverityWarning}, h.display.last())
}

func TestStartLottery(t *testing.T) {
	chain := newFakeChain(contract.VariantRound)
	provider := newFakeProvider(chain, addrA)
	provider.onSend = func(c *fakeChain, from common.Address, req wallet.TxRequest) {
		if string(req.Data) == "startLottery" {
			c.active = true
			c.manager = from
		}
	}
	h := newHarness(t, chain, provider, Options{})
	ctx := context.Background()
	require.NoError(t, h.workflow.Connect(ctx))
	assert.Equal(t, Inactive, h.workflow.View().State)

	res, err := h.workflow.StartLottery(ctx)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, ActiveManager, h.workflow.View().State)
}

func TestStartLotteryAlreadyActive(t *testing.T) {
	for _, tc := range []struct {
		name    string
		account common.Address
		want    UIState
	}{
		{"manager", addrA, ActiveManager},
		{"participant", addrB, ActiveParticipant},
	} {
		t.Run(tc.name, func(t *testing.T) {
			chain := newFakeChain(contract.VariantRound)
			chain.active = true
			chain.manager = addrA
			provider := newFakeProvider(chain, tc.account)
			h := newHarness(t, chain, provider, Options{})
			ctx := context.Background()
			require.NoError(t, h.workflow.Connect(ctx))

			provider.sendErr = errors.New("execution reverted: Lottery already active")
			_, err := h.workflow.StartLottery(ctx)

			var already *AlreadyActiveError
			require.ErrorAs(t, err, &already)
			assert.Equal(t, KindReverted, Classify(err))
			assert.Equal(t, tc.want, h.workflow.View().State)
			assert.Equal(t, "Lottery is already active", h.display.last().Message)
		})
	}
}

func TestStartLotteryOnTicketVariant(t *testing.T) {
	chain := newFakeChain(contract.VariantTicket)
	provider := newFakeProvider(chain, addrA)
	h := newHarness(t, chain, provider, Options{})
	ctx := context.Background()
	require.NoError(t, h.workflow.Connect(ctx))

	_, err := h.workflow.StartLottery(ctx)
	assert.ErrorIs(t, err, contract.ErrRoundsUnsupported)
	assert.Equal(t, 0, provider.sentCount())
}

func pickWinnerChain() *fakeChain {
	chain := newFakeChain(contract.VariantTicket)
	chain.manager = addrA
	chain.participants = []common.Address{addrB, addrC, addrB}
	chain.balances[addrB] = big.NewInt(10)
	chain.balances[addrC] = big.NewInt(10)
	chain.balances[contractAddr] = big.NewInt(30)
	return chain
}

func TestPickWinnerInfersWinner(t *testing.T) {
	chain := pickWinnerChain()
	provider := newFakeProvider(chain, addrA)
	provider.onSend = func(c *fakeChain, from common.Address, req wallet.TxRequest) {
		c.credit(addrC, 30)
		c.balances[contractAddr] = big.NewInt(0)
		c.participants = nil
	}
	h := newHarness(t, chain, provider, Options{})
	ctx := context.Background()
	require.NoError(t, h.workflow.Connect(ctx))

	draw, err := h.workflow.PickWinner(ctx)
	require.NoError(t, err)
	require.NotNil(t, draw.Winner)
	assert.Equal(t, addrC, *draw.Winner)
	assert.Equal(t, int64(30), draw.Prize.Int64())
	assert.Equal(t, 2, draw.Candidates)
	assert.Equal(t, []byte("selectWinner"), provider.sent[0].Data)

	require.Len(t, h.store.draws, 1)
	require.Len(t, h.display.notes, 1)
	assert.Contains(t, h.display.notes[0].Text, "Winner Selected!")
	assert.Contains(t, h.display.notes[0].Text, format.ShortAddress(addrC))
	assert.Contains(t, h.display.notes[0].Text, format.ShortHash(draw.TxHash))
	assert.Contains(t, h.display.messages(), "Selecting winner...")
	assert.Empty(t, h.workflow.View().Snapshot.Participants)
}

func TestPickWinnerUnknownWinner(t *testing.T) {
	chain := pickWinnerChain()
	provider := newFakeProvider(chain, addrA)
	h := newHarness(t, chain, provider, Options{})
	ctx := context.Background()
	require.NoError(t, h.workflow.Connect(ctx))

	draw, err := h.workflow.PickWinner(ctx)
	require.NoError(t, err)
	assert.Nil(t, draw.Winner)
	require.Len(t, h.display.notes, 1)
	assert.NotContains(t, h.display.notes[0].Text, "Winner: ")
}

func TestPickWinnerInsufficientParticipants(t *testing.T) {
	chain := pickWinnerChain()
	chain.participants = chain.participants[:2]
	provider := newFakeProvider(chain, addrA)
	h := newHarness(t, chain, provider, Options{})
	ctx := context.Background()
	require.NoError(t, h.workflow.Connect(ctx))

	provider.sendErr = errors.New("execution reverted: Need at least 3 participants")
	_, err := h.workflow.PickWinner(ctx)

	var tooFew *InsufficientParticipantsError
	require.ErrorAs(t, err, &tooFew)
	assert.Equal(t, "Need at least 3 participants to pick winner", h.display.last().Message)
	assert.Empty(t, h.store.draws)
	assert.Empty(t, h.display.notes)
}

func TestPickWinnerRequiresManager(t *testing.T) {
	chain := pickWinnerChain()
	provider := newFakeProvider(chain, addrB)
	h := newHarness(t, chain, provider, Options{})
	ctx := context.Background()
	require.NoError(t, h.workflow.Connect(ctx))

	_, err := h.workflow.PickWinner(ctx)
	assert.ErrorIs(t, err, ErrNotManager)
	assert.Equal(t, 0, provider.sentCount())
}

func TestConcurrentOperationIsBusy(t *testing.T) {
	chain := newFakeChain(contract.VariantTicket)
	provider := newFakeProvider(chain, addrB)
	h := newHarness(t, chain, provider, Options{})
	ctx := context.Background()
	require.NoError(t, h.workflow.Connect(ctx))

	h.workflow.guards[OpEnter].Lock()
	_, err := h.workflow.EnterLottery(ctx)
	h.workflow.guards[OpEnter].Unlock()

	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, KindBusy, Classify(err))
	assert.Equal(t, 0, provider.sentCount())

	_, err = h.workflow.EnterLottery(ctx)
	assert.NoError(t, err)
}

func TestAccountsChanged(t *testing.T) {
	chain := newFakeChain(contract.VariantTicket)
	chain.manager = addrA
	provider := newFakeProvider(chain, addrA)
	h := newHarness(t, chain, provider, Options{})
	ctx := context.Background()
	require.NoError(t, h.workflow.Connect(ctx))
	assert.Equal(t, ActiveManager, h.workflow.View().State)

	require.NoError(t, h.workflow.AccountsChanged(ctx, []common.Address{addrB}))
	view := h.workflow.View()
	assert.Equal(t, addrB, view.Account)
	assert.Equal(t, ActiveParticipant, view.State)
	assert.Contains(t, h.display.messages(), "Account changed")

	require.NoError(t, h.workflow.AccountsChanged(ctx, nil))
	assert.False(t, h.workflow.View().Connected)
	assert.Equal(t, Status{"Wallet disconnected", SeverityWarning}, h.display.last())
}

func TestChainChangedResetsSession(t *testing.T) {
	chain := newFakeChain(contract.VariantTicket)
	provider := newFakeProvider(chain, addrA)
	h := newHarness(t, chain, provider, Options{})
	require.NoError(t, h.workflow.Connect(context.Background()))

	h.workflow.ChainChanged(sepolia)
	assert.True(t, h.workflow.View().Connected)

	h.workflow.ChainChanged(big.NewInt(1))
	view := h.workflow.View()
	assert.False(t, view.Connected)
	assert.Equal(t, Inactive, view.State)
	assert.Nil(t, view.Snapshot)
}

func TestRefreshBalance(t *testing.T) {
	chain := newFakeChain(contract.VariantTicket)
	provider := newFakeProvider(chain, addrA)
	h := newHarness(t, chain, provider, Options{})
	ctx := context.Background()
	require.NoError(t, h.workflow.Connect(ctx))

	chain.credit(contractAddr, 42)
	require.NoError(t, h.workflow.RefreshBalance(ctx))
	assert.Equal(t, int64(42), h.workflow.View().Balance.Int64())
	assert.Equal(t, Status{"Balance updated", SeveritySuccess}, h.display.last())
}

func TestSelectAccount(t *testing.T) {
	chain := newFakeChain(contract.VariantTicket)
	chain.manager = addrA
	provider := newFakeProvider(chain, addrA, addrB)
	h := newHarness(t, chain, provider, Options{})
	ctx := context.Background()
	require.NoError(t, h.workflow.Connect(ctx))

	require.NoError(t, h.workflow.SelectAccount(ctx, addrB))
	view := h.workflow.View()
	assert.Equal(t, addrB, view.Account)
	assert.Equal(t, ActiveParticipant, view.State)

	err := h.workflow.SelectAccount(ctx, addrC)
	assert.ErrorIs(t, err, wallet.ErrUnknownAccount)
	assert.Equal(t, addrB, h.workflow.View().Account)
}
