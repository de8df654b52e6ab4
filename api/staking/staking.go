// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package staking exposes the staking engine over REST. Mutating routes
// are expected to sit behind the deployment's authorization proxy.
package staking

import (
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/stakewheel/stakewheel/api/restutil"
	"github.com/stakewheel/stakewheel/staking"
)

type Staking struct {
	engine *staking.Engine
}

func New(engine *staking.Engine) *Staking {
	return &Staking{engine: engine}
}

func pathUint64(req *http.Request, name string) (uint64, error) {
	v, err := strconv.ParseUint(mux.Vars(req)[name], 10, 64)
	if err != nil {
		return 0, restutil.BadRequest(errors.WithMessagef(err, "invalid %s", name))
	}
	return v, nil
}

func pathUint32(req *http.Request, name string) (uint32, error) {
	v, err := strconv.ParseUint(mux.Vars(req)[name], 10, 32)
	if err != nil {
		return 0, restutil.BadRequest(errors.WithMessagef(err, "invalid %s", name))
	}
	return uint32(v), nil
}

func pathAddress(req *http.Request, name string) (common.Address, error) {
	raw := mux.Vars(req)[name]
	if !common.IsHexAddress(raw) {
		return common.Address{}, restutil.BadRequest(errors.Errorf("invalid %s", name))
	}
	return common.HexToAddress(raw), nil
}

func (s *Staking) handleGetEpoch(w http.ResponseWriter, _ *http.Request) error {
	number, err := s.engine.CurrentEpoch()
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, &Epoch{
		Number: number,
		Start:  s.engine.EpochStart(number),
	})
}

func (s *Staking) handleGetBounds(w http.ResponseWriter, _ *http.Request) error {
	b := s.engine.Bounds()
	return restutil.WriteJSON(w, &Bounds{
		MinStake:  Amount{b.MinStake},
		MaxStake:  Amount{b.MaxStake},
		MinFeeBps: b.MinFeeBps,
		MaxFeeBps: b.MaxFeeBps,
	})
}

func (s *Staking) handleSetBounds(w http.ResponseWriter, req *http.Request) error {
	var b Bounds
	if err := restutil.ParseJSON(req.Body, &b); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	if b.MinStake.Int != nil || b.MaxStake.Int != nil {
		if err := s.engine.SetStakeBounds(b.MinStake.Int, b.MaxStake.Int); err != nil {
			return err
		}
	}
	if b.MaxFeeBps != 0 {
		if err := s.engine.SetFeeBounds(b.MinFeeBps, b.MaxFeeBps); err != nil {
			return err
		}
	}
	return s.handleGetBounds(w, req)
}

func (s *Staking) handleGetTiers(w http.ResponseWriter, _ *http.Request) error {
	list := s.engine.Tiers()
	out := make([]*Tier, 0, len(list))
	for _, t := range list {
		out = append(out, convertTier(t))
	}
	return restutil.WriteJSON(w, out)
}

func (s *Staking) handleAddTier(w http.ResponseWriter, req *http.Request) error {
	var tr TierRequest
	if err := restutil.ParseJSON(req.Body, &tr); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	id, err := s.engine.AddLockTier(tr.MinStake.Int, tr.LengthEpochs, tr.WeightBps)
	if err != nil {
		return restutil.BadRequest(err)
	}
	return restutil.WriteJSON(w, &TierAdded{ID: id})
}

func (s *Staking) handleRemoveTier(w http.ResponseWriter, req *http.Request) error {
	id, err := pathUint32(req, "id")
	if err != nil {
		return err
	}
	if err := s.engine.RemoveLockTier(id); err != nil {
		return restutil.BadRequest(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Staking) handleListNodes(w http.ResponseWriter, _ *http.Request) error {
	list := s.engine.ListNodes()
	out := make([]*Node, 0, len(list))
	for _, info := range list {
		out = append(out, convertNode(info))
	}
	return restutil.WriteJSON(w, out)
}

func (s *Staking) handleGetNode(w http.ResponseWriter, req *http.Request) error {
	id, err := pathUint64(req, "id")
	if err != nil {
		return err
	}
	info, err := s.engine.GetNode(id)
	if err != nil {
		return restutil.NotFound(err)
	}
	return restutil.WriteJSON(w, convertNode(info))
}

func (s *Staking) handleRequestNode(w http.ResponseWriter, req *http.Request) error {
	var nr NodeRequest
	if err := restutil.ParseJSON(req.Body, &nr); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	nodeID, positionID, err := s.engine.RequestNode(nr.Operator, nr.Stake.Int, nr.FeeBps, nr.MaxStake.Int, nr.TierID)
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, &NodeRequested{NodeID: nodeID, PositionID: positionID})
}

func (s *Staking) handleApproveNode(w http.ResponseWriter, req *http.Request) error {
	id, err := pathUint64(req, "id")
	if err != nil {
		return err
	}
	if err := s.engine.ApproveNode(id); err != nil {
		return err
	}
	return s.writeNode(w, id)
}

func (s *Staking) handleRejectNode(w http.ResponseWriter, req *http.Request) error {
	id, err := pathUint64(req, "id")
	if err != nil {
		return err
	}
	if err := s.engine.RejectNode(id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Staking) handleLeaveNode(w http.ResponseWriter, req *http.Request) error {
	id, err := pathUint64(req, "id")
	if err != nil {
		return err
	}
	if err := s.engine.LeaveNode(id); err != nil {
		return err
	}
	return s.writeNode(w, id)
}

func (s *Staking) handleSlashNode(w http.ResponseWriter, req *http.Request) error {
	id, err := pathUint64(req, "id")
	if err != nil {
		return err
	}
	var body Slash
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := s.engine.SlashNode(id, body.SlashedBps); err != nil {
		return err
	}
	return s.writeNode(w, id)
}

func (s *Staking) handleToggleWhitelist(w http.ResponseWriter, req *http.Request) error {
	id, err := pathUint64(req, "id")
	if err != nil {
		return err
	}
	var body WhitelistToggle
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := s.engine.SetWhitelistEnabled(id, body.Enabled); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Staking) handleWhitelistAdd(w http.ResponseWriter, req *http.Request) error {
	id, err := pathUint64(req, "id")
	if err != nil {
		return err
	}
	addr, err := pathAddress(req, "address")
	if err != nil {
		return err
	}
	if err := s.engine.WhitelistDelegator(id, addr); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Staking) handleWhitelistRemove(w http.ResponseWriter, req *http.Request) error {
	id, err := pathUint64(req, "id")
	if err != nil {
		return err
	}
	addr, err := pathAddress(req, "address")
	if err != nil {
		return err
	}
	if err := s.engine.UnwhitelistDelegator(id, addr); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Staking) handleOpenDelegation(w http.ResponseWriter, req *http.Request) error {
	var d Delegation
	if err := restutil.ParseJSON(req.Body, &d); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	pid, err := s.engine.Delegate(d.Owner, d.NodeID, d.Stake.Int, d.TierID)
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, &DelegationOpened{PositionID: pid})
}

func (s *Staking) handleGetPosition(w http.ResponseWriter, req *http.Request) error {
	id, err := pathUint64(req, "id")
	if err != nil {
		return err
	}
	info, err := s.engine.GetPosition(id)
	if err != nil {
		return restutil.NotFound(err)
	}
	return restutil.WriteJSON(w, convertPosition(info))
}

func (s *Staking) handleGetPendingRewards(w http.ResponseWriter, req *http.Request) error {
	id, err := pathUint64(req, "id")
	if err != nil {
		return err
	}
	pending, err := s.engine.PendingRewards(id)
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, &Claimed{Amount: Amount{pending}})
}

func (s *Staking) handleChangeDelegation(w http.ResponseWriter, req *http.Request) error {
	id, err := pathUint64(req, "id")
	if err != nil {
		return err
	}
	var body DelegationChange
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := s.engine.ChangeDelegation(id, body.NodeID); err != nil {
		return err
	}
	info, err := s.engine.GetPosition(id)
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, convertPosition(info))
}

func (s *Staking) handleWithdraw(w http.ResponseWriter, req *http.Request) error {
	id, err := pathUint64(req, "id")
	if err != nil {
		return err
	}
	if err := s.engine.WithdrawDelegation(id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Staking) handleClaim(w http.ResponseWriter, req *http.Request) error {
	id, err := pathUint64(req, "id")
	if err != nil {
		return err
	}
	amount, err := s.engine.ClaimRewards(id)
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, &Claimed{Amount: Amount{amount}})
}

func (s *Staking) handleAccountPositions(w http.ResponseWriter, req *http.Request) error {
	addr, err := pathAddress(req, "address")
	if err != nil {
		return err
	}
	ids, err := s.engine.PositionsOf(addr)
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, ids)
}

func (s *Staking) handleClaimAll(w http.ResponseWriter, req *http.Request) error {
	addr, err := pathAddress(req, "address")
	if err != nil {
		return err
	}
	total, err := s.engine.ClaimAllFor(addr)
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, &Claimed{Amount: Amount{total}})
}

func (s *Staking) handleSetRewardPool(w http.ResponseWriter, req *http.Request) error {
	var body RewardPool
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := s.engine.SetRewardPool(body.Epoch, body.Amount.Int); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Staking) handleGetStuckShares(w http.ResponseWriter, req *http.Request) error {
	ep, err := pathUint32(req, "epoch")
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, &StuckShares{
		Epoch:  ep,
		Amount: Amount{s.engine.StuckShares(ep)},
	})
}

func (s *Staking) writeNode(w http.ResponseWriter, id uint64) error {
	info, err := s.engine.GetNode(id)
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, convertNode(info))
}

func (s *Staking) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/epoch").
		Methods(http.MethodGet).
		Name("staking_get_epoch").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleGetEpoch))
	sub.Path("/bounds").
		Methods(http.MethodGet).
		Name("staking_get_bounds").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleGetBounds))
	sub.Path("/bounds").
		Methods(http.MethodPost).
		Name("staking_set_bounds").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleSetBounds))
	sub.Path("/tiers").
		Methods(http.MethodGet).
		Name("staking_get_tiers").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleGetTiers))
	sub.Path("/tiers").
		Methods(http.MethodPost).
		Name("staking_add_tier").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleAddTier))
	sub.Path("/tiers/{id}").
		Methods(http.MethodDelete).
		Name("staking_remove_tier").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleRemoveTier))
	sub.Path("/nodes").
		Methods(http.MethodGet).
		Name("staking_list_nodes").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleListNodes))
	sub.Path("/nodes").
		Methods(http.MethodPost).
		Name("staking_request_node").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleRequestNode))
	sub.Path("/nodes/{id}").
		Methods(http.MethodGet).
		Name("staking_get_node").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleGetNode))
	sub.Path("/nodes/{id}/approve").
		Methods(http.MethodPost).
		Name("staking_approve_node").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleApproveNode))
	sub.Path("/nodes/{id}/reject").
		Methods(http.MethodPost).
		Name("staking_reject_node").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleRejectNode))
	sub.Path("/nodes/{id}/leave").
		Methods(http.MethodPost).
		Name("staking_leave_node").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleLeaveNode))
	sub.Path("/nodes/{id}/slash").
		Methods(http.MethodPost).
		Name("staking_slash_node").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleSlashNode))
	sub.Path("/nodes/{id}/whitelist").
		Methods(http.MethodPost).
		Name("staking_toggle_whitelist").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleToggleWhitelist))
	sub.Path("/nodes/{id}/whitelist/{address}").
		Methods(http.MethodPut).
		Name("staking_whitelist_add").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleWhitelistAdd))
	sub.Path("/nodes/{id}/whitelist/{address}").
		Methods(http.MethodDelete).
		Name("staking_whitelist_remove").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleWhitelistRemove))
	sub.Path("/delegations").
		Methods(http.MethodPost).
		Name("staking_open_delegation").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleOpenDelegation))
	sub.Path("/positions/{id}").
		Methods(http.MethodGet).
		Name("staking_get_position").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleGetPosition))
	sub.Path("/positions/{id}/rewards").
		Methods(http.MethodGet).
		Name("staking_get_pending_rewards").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleGetPendingRewards))
	sub.Path("/positions/{id}/node").
		Methods(http.MethodPost).
		Name("staking_change_delegation").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleChangeDelegation))
	sub.Path("/positions/{id}/withdraw").
		Methods(http.MethodPost).
		Name("staking_withdraw").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleWithdraw))
	sub.Path("/positions/{id}/claim").
		Methods(http.MethodPost).
		Name("staking_claim").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleClaim))
	sub.Path("/accounts/{address}/positions").
		Methods(http.MethodGet).
		Name("staking_account_positions").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleAccountPositions))
	sub.Path("/accounts/{address}/claims").
		Methods(http.MethodPost).
		Name("staking_claim_all").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleClaimAll))
	sub.Path("/rewards/pools").
		Methods(http.MethodPost).
		Name("staking_set_reward_pool").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleSetRewardPool))
	sub.Path("/rewards/stuck/{epoch}").
		Methods(http.MethodGet).
		Name("staking_get_stuck_shares").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleGetStuckShares))
}
