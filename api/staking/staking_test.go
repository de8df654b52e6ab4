// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"bytes"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakewheel/stakewheel/custody"
	"github.com/stakewheel/stakewheel/staking"
	"github.com/stakewheel/stakewheel/staking/globalstats"
)

const (
	initTimestamp = uint64(1_000_000)
	epochSize     = uint64(1_000)
)

type testServer struct {
	*httptest.Server
	ts uint64
}

func newTestServer(t *testing.T) *testServer {
	srv := &testServer{ts: initTimestamp}
	engine, err := staking.New(staking.Options{
		InitTimestamp: initTimestamp,
		EpochSize:     epochSize,
		Bounds: globalstats.Bounds{
			MinStake:  big.NewInt(1),
			MaxStake:  big.NewInt(1_000_000_000),
			MaxFeeBps: 10_000,
		},
		Now: func() uint64 { return srv.ts },
	}, custody.NewMemoryVault(), custody.NewMemoryRegistry())
	require.NoError(t, err)

	router := mux.NewRouter()
	New(engine).Mount(router, "/staking")
	srv.Server = httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func (s *testServer) goToEpoch(e uint32) {
	s.ts = initTimestamp + uint64(e-1)*epochSize
}

func (s *testServer) do(t *testing.T, method, path string, body, out any) int {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	if out != nil && res.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func amount(v int64) Amount {
	return Amount{big.NewInt(v)}
}

func TestStakingAPI(t *testing.T) {
	srv := newTestServer(t)
	srv.goToEpoch(2)

	operator := "0x0123456789012345678901234567890123456789"
	delegator := "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"

	// node request and approval
	var requested NodeRequested
	status := srv.do(t, http.MethodPost, "/staking/nodes", map[string]any{
		"operator": operator,
		"stake":    "100000",
		"feeBps":   1000,
		"maxStake": "1000000",
		"tierId":   0,
	}, &requested)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, uint64(1), requested.NodeID)

	var node Node
	status = srv.do(t, http.MethodPost, "/staking/nodes/1/approve", nil, &node)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "active", node.Status)
	assert.Equal(t, "100000", node.BaseStaked.String())

	// delegation
	var opened DelegationOpened
	status = srv.do(t, http.MethodPost, "/staking/delegations", map[string]any{
		"owner":  delegator,
		"nodeId": 1,
		"stake":  "10000",
		"tierId": 0,
	}, &opened)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, uint64(2), opened.PositionID)

	var pos Position
	status = srv.do(t, http.MethodGet, "/staking/positions/2", nil, &pos)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "delegator", pos.Type)
	assert.Equal(t, "10000", pos.BaseStaked.String())

	// reward pool and claim
	srv.goToEpoch(3)
	status = srv.do(t, http.MethodPost, "/staking/rewards/pools", RewardPool{
		Epoch:  2,
		Amount: amount(1_100),
	}, nil)
	require.Equal(t, http.StatusNoContent, status)

	var pending Claimed
	status = srv.do(t, http.MethodGet, "/staking/positions/2/rewards", nil, &pending)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "90", pending.Amount.String()) // 9000 * 1100 / 110000

	var claimed Claimed
	status = srv.do(t, http.MethodPost, "/staking/positions/2/claim", nil, &claimed)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "90", claimed.Amount.String())

	// account views
	var ids []uint64
	status = srv.do(t, http.MethodGet, "/staking/accounts/"+delegator+"/positions", nil, &ids)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []uint64{2}, ids)

	var ep Epoch
	status = srv.do(t, http.MethodGet, "/staking/epoch", nil, &ep)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, uint32(3), ep.Number)
}

func TestStakingAPIRejections(t *testing.T) {
	srv := newTestServer(t)
	srv.goToEpoch(2)

	// domain rejection maps to 422
	status := srv.do(t, http.MethodPost, "/staking/nodes", map[string]any{
		"operator": "0x0123456789012345678901234567890123456789",
		"stake":    "0",
		"feeBps":   0,
		"maxStake": "1000000",
		"tierId":   0,
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	// missing record maps to 404
	status = srv.do(t, http.MethodGet, "/staking/nodes/99", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	// malformed body maps to 400
	status = srv.do(t, http.MethodPost, "/staking/delegations", map[string]any{
		"unknown": true,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	// invalid address in path maps to 400
	status = srv.do(t, http.MethodGet, "/staking/accounts/nonsense/positions", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}
