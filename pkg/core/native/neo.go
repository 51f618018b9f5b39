package native

import (
	"crypto/elliptic"
	"math/big"
	"sort"

	"github.com/nspcc-dev/neo-go-core/pkg/config"
	"github.com/nspcc-dev/neo-go-core/pkg/core/interop"
	"github.com/nspcc-dev/neo-go-core/pkg/core/interop/runtime"
	"github.com/nspcc-dev/neo-go-core/pkg/core/state"
	"github.com/nspcc-dev/neo-go-core/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go-core/pkg/encoding/bigint"
	"github.com/nspcc-dev/neo-go-core/pkg/io"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/callflag"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
	"github.com/nspcc-dev/neo-go-core/pkg/vm/stackitem"
)

// NEOTotalSupplyAmount is NEO's fixed, non-divisible total supply
// (spec.md §4.3 "NeoToken ... decimals=0, totalSupply=100000000"),
// minted in full at genesis and never changed afterward.
const NEOTotalSupplyAmount = 100_000_000

// DefaultRegisterPrice is the GAS a candidate burns to register,
// expressed in GAS fractions.
const DefaultRegisterPrice = 1000 * GASFactor

// defaultGasPerBlock is the NEO-holder/committee GAS bonus minted every
// block, before any on-chain vote to change it (this core has no
// setGasPerBlock method, an Open Question simplification recorded in
// DESIGN.md).
const defaultGasPerBlock = 5 * GASFactor

// voterRewardFactor scales the cumulative GasPerVote counter so integer
// division against a candidate's vote count doesn't collapse small
// per-block rewards to zero (spec.md §4.3 "lastGasPerVote accrual").
const voterRewardFactor = 100_000_000

const (
	prefixCandidate  = 33
	prefixGasPerVote = 23
	prefixCommittee  = 14
)

// NeoToken is the native governance token: balances double as voting
// weight, holders delegate that weight to registered candidates, and the
// top-voted candidates form the committee from which block validators
// are drawn (spec.md §4.3 "NEO token governance").
type NeoToken struct {
	md     *interop.ContractMD
	cfg    *config.ProtocolConfiguration
	GAS    *GasToken
	Policy *PolicyContract

	// GenesisAccount receives the entire NEO supply at Initialize. A
	// real network mints it to the standby committee's multisig
	// account; this core has no multisig-script builder, so the
	// genesis account is supplied directly by whoever builds the
	// genesis block, an Open Question simplification.
	GenesisAccount util.Uint160
}

// NewNeoToken builds the NEO native with its fixed method table.
func NewNeoToken(cfg *config.ProtocolConfiguration, genesisAccount util.Uint160) *NeoToken {
	n := &NeoToken{
		md:             interop.NewContractMD("NeoToken", NeoTokenID, HashFromID(NeoTokenID)),
		cfg:            cfg,
		GenesisAccount: genesisAccount,
	}
	n.md.AddMethod(interop.MethodAndPrice{Func: n.symbol, RequiredFlags: callflag.None,
		MD: manifest.Method{Name: "symbol", ReturnType: "ByteString", Safe: true}})
	n.md.AddMethod(interop.MethodAndPrice{Func: n.decimals, RequiredFlags: callflag.None,
		MD: manifest.Method{Name: "decimals", ReturnType: "Integer", Safe: true}})
	n.md.AddMethod(interop.MethodAndPrice{Func: n.totalSupply, RequiredFlags: callflag.ReadStates,
		MD: manifest.Method{Name: "totalSupply", ReturnType: "Integer", Safe: true}})
	n.md.AddMethod(interop.MethodAndPrice{Func: n.balanceOf, RequiredFlags: callflag.ReadStates,
		MD: manifest.Method{Name: "balanceOf", Parameters: []manifest.Parameter{{Name: "account", Type: "ByteString"}}, ReturnType: "Integer", Safe: true}})
	n.md.AddMethod(interop.MethodAndPrice{Func: n.transfer, RequiredFlags: callflag.States | callflag.AllowNotify,
		MD: manifest.Method{Name: "transfer", Parameters: []manifest.Parameter{
			{Name: "from", Type: "ByteString"}, {Name: "to", Type: "ByteString"},
			{Name: "amount", Type: "Integer"}, {Name: "data", Type: "Any"},
		}, ReturnType: "Boolean"}})
	n.md.AddMethod(interop.MethodAndPrice{Func: n.vote, RequiredFlags: callflag.States,
		MD: manifest.Method{Name: "vote", Parameters: []manifest.Parameter{
			{Name: "account", Type: "ByteString"}, {Name: "voteTo", Type: "ByteString"},
		}, ReturnType: "Boolean"}})
	n.md.AddMethod(interop.MethodAndPrice{Func: n.registerCandidate, RequiredFlags: callflag.States,
		MD: manifest.Method{Name: "registerCandidate", Parameters: []manifest.Parameter{{Name: "pubkey", Type: "ByteString"}}, ReturnType: "Boolean"}})
	n.md.AddMethod(interop.MethodAndPrice{Func: n.unregisterCandidate, RequiredFlags: callflag.States,
		MD: manifest.Method{Name: "unregisterCandidate", Parameters: []manifest.Parameter{{Name: "pubkey", Type: "ByteString"}}, ReturnType: "Boolean"}})
	n.md.AddMethod(interop.MethodAndPrice{Func: n.getCandidates, RequiredFlags: callflag.ReadStates,
		MD: manifest.Method{Name: "getCandidates", ReturnType: "Array", Safe: true}})
	n.md.AddMethod(interop.MethodAndPrice{Func: n.getCommittee, RequiredFlags: callflag.ReadStates,
		MD: manifest.Method{Name: "getCommittee", ReturnType: "Array", Safe: true}})
	n.md.AddMethod(interop.MethodAndPrice{Func: n.getNextBlockValidators, RequiredFlags: callflag.ReadStates,
		MD: manifest.Method{Name: "getNextBlockValidators", ReturnType: "Array", Safe: true}})
	n.md.AddMethod(interop.MethodAndPrice{Func: n.unclaimedGas, RequiredFlags: callflag.ReadStates,
		MD: manifest.Method{Name: "unclaimedGas", Parameters: []manifest.Parameter{
			{Name: "account", Type: "ByteString"}, {Name: "end", Type: "Integer"},
		}, ReturnType: "Integer", Safe: true}})
	n.md.AddEvent(interop.Event{MD: manifest.Event{Name: "Transfer", Parameters: []manifest.Parameter{
		{Name: "from", Type: "ByteString"}, {Name: "to", Type: "ByteString"}, {Name: "amount", Type: "Integer"},
	}}})
	n.md.AddEvent(interop.Event{MD: manifest.Event{Name: "CandidateStateChanged", Parameters: []manifest.Parameter{
		{Name: "pubkey", Type: "ByteString"}, {Name: "registered", Type: "Boolean"}, {Name: "votes", Type: "Integer"},
	}}})
	return n
}

func (n *NeoToken) Metadata() *interop.ContractMD { return n.md }

// Initialize mints the entire fixed NEO supply to the genesis account
// and seeds the committee with the configured standby committee.
func (n *NeoToken) Initialize(ic *interop.Context) error {
	nep17SetTotalSupply(ic, n.md.ID, big.NewInt(NEOTotalSupplyAmount))
	n.setAccount(ic, n.GenesisAccount, &state.NEOBalance{
		NEP17Balance:   state.NEP17Balance{Balance: big.NewInt(NEOTotalSupplyAmount)},
		LastGasPerVote: big.NewInt(0),
	})
	n.setCommittee(ic, n.cfg.StandbyCommittee)
	return nil
}

func (n *NeoToken) symbol(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	return stackitem.NewByteArray([]byte("NEO")), nil
}

func (n *NeoToken) decimals(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	return stackitem.NewBigIntegerFromInt64(0), nil
}

func (n *NeoToken) totalSupply(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	return stackitem.NewBigInteger(nep17TotalSupply(ic, n.md.ID)), nil
}

func (n *NeoToken) balanceOf(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	acc, err := accountArg(args, 0)
	if err != nil {
		return nil, err
	}
	return stackitem.NewBigInteger(n.getAccount(ic, acc).Balance), nil
}

// getAccount reads account's governance record, defaulting to a
// zero-balance, unvoted record if none is stored yet.
func (n *NeoToken) getAccount(ic *interop.Context, account util.Uint160) *state.NEOBalance {
	v, err := ic.DAO.Get(nep17Key(n.md.ID, prefixNEP17Account, account[:]))
	if err != nil {
		return &state.NEOBalance{NEP17Balance: state.NEP17Balance{Balance: big.NewInt(0)}, LastGasPerVote: big.NewInt(0)}
	}
	acc := &state.NEOBalance{}
	acc.DecodeBinary(io.NewBinReaderFromBuf(v))
	return acc
}

func (n *NeoToken) setAccount(ic *interop.Context, account util.Uint160, acc *state.NEOBalance) {
	if acc.Balance.Sign() == 0 && acc.VoteTo == nil {
		ic.DAO.Delete(nep17Key(n.md.ID, prefixNEP17Account, account[:]))
		return
	}
	w := io.NewBufBinWriter()
	acc.EncodeBinary(w.BinWriter)
	ic.DAO.Put(nep17Key(n.md.ID, prefixNEP17Account, account[:]), w.Bytes())
}

func (n *NeoToken) getCandidate(ic *interop.Context, pub []byte) (*state.Candidate, bool) {
	v, err := ic.DAO.Get(nep17Key(n.md.ID, prefixCandidate, pub))
	if err != nil {
		return nil, false
	}
	c := &state.Candidate{}
	c.DecodeBinary(io.NewBinReaderFromBuf(v))
	return c, true
}

func (n *NeoToken) setCandidate(ic *interop.Context, pub []byte, c *state.Candidate) {
	w := io.NewBufBinWriter()
	c.EncodeBinary(w.BinWriter)
	ic.DAO.Put(nep17Key(n.md.ID, prefixCandidate, pub), w.Bytes())
}

func (n *NeoToken) getGasPerVote(ic *interop.Context, pub []byte) *big.Int {
	v, err := ic.DAO.Get(nep17Key(n.md.ID, prefixGasPerVote, pub))
	if err != nil {
		return big.NewInt(0)
	}
	return bigint.FromBytes(v)
}

func (n *NeoToken) setGasPerVote(ic *interop.Context, pub []byte, v *big.Int) {
	ic.DAO.Put(nep17Key(n.md.ID, prefixGasPerVote, pub), bigint.ToBytes(v))
}

// accrueGas mints acc's GAS earned from voting since its last snapshot,
// then refreshes the snapshot; it must run before any change to acc's
// Balance or VoteTo (spec.md §4.3 "lastGasPerVote accrual").
func (n *NeoToken) accrueGas(ic *interop.Context, account util.Uint160, acc *state.NEOBalance) {
	acc.BalanceHeight = ic.BlockHeight()
	if acc.VoteTo == nil || n.GAS == nil {
		return
	}
	cur := n.getGasPerVote(ic, acc.VoteTo)
	reward := new(big.Int).Sub(cur, acc.LastGasPerVote)
	reward.Mul(reward, acc.Balance)
	reward.Div(reward, big.NewInt(voterRewardFactor))
	acc.LastGasPerVote = cur
	if reward.Sign() > 0 {
		n.GAS.Mint(ic, account, reward)
	}
}

func (n *NeoToken) transfer(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	from, err := accountArg(args, 0)
	if err != nil {
		return nil, err
	}
	to, err := accountArg(args, 1)
	if err != nil {
		return nil, err
	}
	amount, err := bigIntArg(args, 2)
	if err != nil {
		return nil, err
	}
	if amount.Sign() < 0 {
		return nil, errNegativeAmount
	}
	ok, err := runtime.CheckWitness(ic, from[:])
	if err != nil {
		return nil, err
	}
	if !ok {
		return stackitem.NewBool(false), nil
	}
	fromAcc := n.getAccount(ic, from)
	if fromAcc.Balance.Cmp(amount) < 0 {
		return stackitem.NewBool(false), nil
	}
	n.accrueGas(ic, from, fromAcc)
	toAcc := fromAcc
	if from != to {
		toAcc = n.getAccount(ic, to)
		n.accrueGas(ic, to, toAcc)
	}
	if amount.Sign() > 0 && from != to {
		fromAcc.Balance.Sub(fromAcc.Balance, amount)
		toAcc.Balance.Add(toAcc.Balance, amount)
		n.moveVotes(ic, fromAcc.VoteTo, amount, false)
		n.moveVotes(ic, toAcc.VoteTo, amount, true)
	}
	n.setAccount(ic, from, fromAcc)
	if from != to {
		n.setAccount(ic, to, toAcc)
	}
	notifyTransfer(ic, n.md.Hash, from, to, amount)
	return stackitem.NewBool(true), nil
}

func (n *NeoToken) moveVotes(ic *interop.Context, pub []byte, amount *big.Int, add bool) {
	if pub == nil {
		return
	}
	cand, ok := n.getCandidate(ic, pub)
	if !ok {
		return
	}
	if add {
		cand.Votes.Add(cand.Votes, amount)
	} else {
		cand.Votes.Sub(cand.Votes, amount)
	}
	n.setCandidate(ic, pub, cand)
}

func (n *NeoToken) vote(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	account, err := accountArg(args, 0)
	if err != nil {
		return nil, err
	}
	ok, err := runtime.CheckWitness(ic, account[:])
	if err != nil {
		return nil, err
	}
	if !ok {
		return stackitem.NewBool(false), nil
	}
	acc := n.getAccount(ic, account)
	n.accrueGas(ic, account, acc)
	n.moveVotes(ic, acc.VoteTo, acc.Balance, false)
	voteTo, err := args[1].TryBytes()
	if err != nil || len(voteTo) == 0 {
		acc.VoteTo = nil
		n.setAccount(ic, account, acc)
		return stackitem.NewBool(true), nil
	}
	cand, ok := n.getCandidate(ic, voteTo)
	if !ok || !cand.Registered {
		return stackitem.NewBool(false), nil
	}
	acc.VoteTo = voteTo
	n.moveVotes(ic, voteTo, acc.Balance, true)
	n.setAccount(ic, account, acc)
	return stackitem.NewBool(true), nil
}

func (n *NeoToken) registerCandidate(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	pub, err := args[0].TryBytes()
	if err != nil {
		return nil, err
	}
	key, err := keys.NewPublicKeyFromBytes(pub, elliptic.P256())
	if err != nil {
		return nil, err
	}
	scriptHash := key.GetScriptHash()
	ok, err := runtime.CheckWitness(ic, scriptHash[:])
	if err != nil {
		return nil, err
	}
	if !ok {
		return stackitem.NewBool(false), nil
	}
	price := n.registerPrice(ic)
	if n.GAS != nil {
		if err := n.GAS.Burn(ic, scriptHash, price); err != nil {
			return stackitem.NewBool(false), nil
		}
	}
	cand, exists := n.getCandidate(ic, pub)
	if !exists {
		cand = &state.Candidate{Votes: big.NewInt(0)}
	}
	cand.Registered = true
	n.setCandidate(ic, pub, cand)
	ic.AddNotification(n.md.Hash, "CandidateStateChanged", stackitem.NewArray([]stackitem.Item{
		stackitem.NewByteArray(pub), stackitem.NewBool(true), stackitem.NewBigInteger(new(big.Int).Set(cand.Votes)),
	}))
	return stackitem.NewBool(true), nil
}

func (n *NeoToken) unregisterCandidate(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	pub, err := args[0].TryBytes()
	if err != nil {
		return nil, err
	}
	key, err := keys.NewPublicKeyFromBytes(pub, elliptic.P256())
	if err != nil {
		return nil, err
	}
	scriptHash := key.GetScriptHash()
	ok, err := runtime.CheckWitness(ic, scriptHash[:])
	if err != nil {
		return nil, err
	}
	if !ok {
		return stackitem.NewBool(false), nil
	}
	cand, exists := n.getCandidate(ic, pub)
	if !exists {
		return stackitem.NewBool(true), nil
	}
	cand.Registered = false
	if cand.Votes.Sign() == 0 {
		ic.DAO.Delete(nep17Key(n.md.ID, prefixCandidate, pub))
	} else {
		// Accrued GasPerVote stays claimable by whoever still voted for
		// this candidate, so the record is kept rather than deleted.
		n.setCandidate(ic, pub, cand)
	}
	ic.AddNotification(n.md.Hash, "CandidateStateChanged", stackitem.NewArray([]stackitem.Item{
		stackitem.NewByteArray(pub), stackitem.NewBool(false), stackitem.NewBigInteger(new(big.Int).Set(cand.Votes)),
	}))
	return stackitem.NewBool(true), nil
}

const maxCandidatesResponse = 256

func (n *NeoToken) getCandidates(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	cands := n.allCandidates(ic)
	items := make([]stackitem.Item, 0, len(cands))
	for i, c := range cands {
		if i >= maxCandidatesResponse {
			break
		}
		items = append(items, stackitem.NewStruct([]stackitem.Item{
			stackitem.NewByteArray(c.pub), stackitem.NewBigInteger(new(big.Int).Set(c.Votes)),
		}))
	}
	return stackitem.NewArray(items), nil
}

type candidateEntry struct {
	pub []byte
	*state.Candidate
}

// allCandidates returns every registered candidate, ordered by votes
// descending and ties broken by public key byte order (spec.md §4.3
// "committee recomputation ... tie-break by public-key byte order").
func (n *NeoToken) allCandidates(ic *interop.Context) []candidateEntry {
	prefix := nep17Key(n.md.ID, prefixCandidate, nil)
	var out []candidateEntry
	ic.DAO.Seek(prefix, 0, func(k, v []byte) bool {
		pub := append([]byte{}, k[len(prefix):]...)
		c := &state.Candidate{}
		c.DecodeBinary(io.NewBinReaderFromBuf(v))
		if c.Registered {
			out = append(out, candidateEntry{pub: pub, Candidate: c})
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		cmp := out[i].Votes.Cmp(out[j].Votes)
		if cmp != 0 {
			return cmp > 0
		}
		return compareBytes(out[i].pub, out[j].pub) < 0
	})
	return out
}

func compareBytes(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return int(a[i]) - int(b[i])
		}
	}
	return len(a) - len(b)
}

func (n *NeoToken) getCommittee(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	committee := n.committee(ic)
	items := make([]stackitem.Item, len(committee))
	for i, k := range committee {
		items[i] = stackitem.NewByteArray(k.Bytes())
	}
	return stackitem.NewArray(items), nil
}

func (n *NeoToken) getNextBlockValidators(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	vals := n.validators(ic)
	items := make([]stackitem.Item, len(vals))
	for i, k := range vals {
		items[i] = stackitem.NewByteArray(k.Bytes())
	}
	return stackitem.NewArray(items), nil
}

func (n *NeoToken) unclaimedGas(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	account, err := accountArg(args, 0)
	if err != nil {
		return nil, err
	}
	acc := n.getAccount(ic, account)
	if acc.VoteTo == nil {
		return stackitem.NewBigIntegerFromInt64(0), nil
	}
	cur := n.getGasPerVote(ic, acc.VoteTo)
	reward := new(big.Int).Sub(cur, acc.LastGasPerVote)
	reward.Mul(reward, acc.Balance)
	reward.Div(reward, big.NewInt(voterRewardFactor))
	return stackitem.NewBigInteger(reward), nil
}

// committee reads the current committee, falling back to the standby
// committee before the first refresh (genesis).
func (n *NeoToken) committee(ic *interop.Context) keys.PublicKeys {
	v, err := ic.DAO.Get(nep17Key(n.md.ID, prefixCommittee, nil))
	if err != nil {
		return n.cfg.StandbyCommittee
	}
	r := io.NewBinReaderFromBuf(v)
	count := r.ReadVarUint()
	out := make(keys.PublicKeys, count)
	for i := range out {
		b := r.ReadVarBytes(33)
		k, kerr := keys.NewPublicKeyFromBytes(b, elliptic.P256())
		if kerr != nil {
			return n.cfg.StandbyCommittee
		}
		out[i] = k
	}
	return out
}

func (n *NeoToken) setCommittee(ic *interop.Context, committee keys.PublicKeys) {
	w := io.NewBufBinWriter()
	w.BinWriter.WriteVarUint(uint64(len(committee)))
	for _, k := range committee {
		w.BinWriter.WriteVarBytes(k.Bytes())
	}
	ic.DAO.Put(nep17Key(n.md.ID, prefixCommittee, nil), w.Bytes())
}

// validators is the first ValidatorsCount committee members, reordered
// by public key byte order the way consensus nodes must agree on a
// single canonical validator order independent of vote ranking.
func (n *NeoToken) validators(ic *interop.Context) keys.PublicKeys {
	committee := n.committee(ic)
	count := n.cfg.ValidatorsCount
	if count > len(committee) {
		count = len(committee)
	}
	vals := append(keys.PublicKeys{}, committee[:count]...)
	sort.Sort(vals)
	return vals
}

// PrimaryAccount returns the script hash of the validator whose turn it
// is to produce ic.Block, the account GasToken.OnPersist credits the
// summed network fee to.
func (n *NeoToken) PrimaryAccount(ic *interop.Context) util.Uint160 {
	vals := n.validators(ic)
	if len(vals) == 0 {
		return util.Uint160{}
	}
	idx := int(ic.Block.PrimaryIndex) % len(vals)
	return vals[idx].GetScriptHash()
}

// GasPerBlock is the current NEO-holder/committee GAS bonus schedule
// value; this core has no on-chain setter for it (Open Question
// simplification, see DESIGN.md).
func (n *NeoToken) GasPerBlock(ic *interop.Context) *big.Int {
	return big.NewInt(defaultGasPerBlock)
}

func (n *NeoToken) registerPrice(ic *interop.Context) *big.Int {
	if n.Policy != nil {
		return n.Policy.RegisterPrice(ic)
	}
	return big.NewInt(DefaultRegisterPrice)
}

// DistributeGasPerVote folds amount into every committee member's
// cumulative GasPerVote counter, weighted by committee rank so
// higher-ranked members draw a larger share of the pool independent of
// their own vote count (spec.md §4.3 "GasPerVote distribution").
func (n *NeoToken) DistributeGasPerVote(ic *interop.Context, amount *big.Int) error {
	committee := n.committee(ic)
	size := len(committee)
	if size == 0 || amount.Sign() <= 0 {
		return nil
	}
	denom := big.NewInt(int64(size * (size + 1)))
	for i, pub := range committee {
		cand, ok := n.getCandidate(ic, pub.Bytes())
		if !ok || cand.Votes.Sign() <= 0 {
			continue
		}
		weight := big.NewInt(int64(2 * (size - i)))
		share := new(big.Int).Mul(amount, weight)
		share.Mul(share, big.NewInt(voterRewardFactor))
		share.Div(share, denom)
		share.Div(share, cand.Votes)
		if share.Sign() <= 0 {
			continue
		}
		cur := n.getGasPerVote(ic, pub.Bytes())
		cur.Add(cur, share)
		n.setGasPerVote(ic, pub.Bytes(), cur)
	}
	return nil
}

// committeeRefreshInterval is how often (in blocks) the committee is
// recomputed from candidate votes.
func (n *NeoToken) committeeRefreshInterval() uint32 {
	size := uint32(n.cfg.CommitteeSize())
	if size == 0 {
		return 1
	}
	return size
}

func (n *NeoToken) OnPersist(ic *interop.Context) error { return nil }

// PostPersist recomputes the committee from candidate votes every
// committeeRefreshInterval blocks (spec.md §4.3 "committee
// recomputation every committee-size blocks").
func (n *NeoToken) PostPersist(ic *interop.Context) error {
	if ic.Block == nil {
		return nil
	}
	interval := n.committeeRefreshInterval()
	if ic.Block.Index%interval != 0 {
		return nil
	}
	cands := n.allCandidates(ic)
	size := n.cfg.CommitteeSize()
	committee := make(keys.PublicKeys, 0, size)
	for i := 0; i < size && i < len(cands); i++ {
		k, err := keys.NewPublicKeyFromBytes(cands[i].pub, elliptic.P256())
		if err != nil {
			continue
		}
		committee = append(committee, k)
	}
	if len(committee) < size {
		for _, k := range n.cfg.StandbyCommittee {
			if len(committee) >= size {
				break
			}
			found := false
			for _, c := range committee {
				if c.Equal(k) {
					found = true
					break
				}
			}
			if !found {
				committee = append(committee, k)
			}
		}
	}
	n.setCommittee(ic, committee)
	return nil
}
