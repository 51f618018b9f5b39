package native

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/nspcc-dev/neo-go-core/pkg/core/interop"
	"github.com/nspcc-dev/neo-go-core/pkg/core/interop/runtime"
	"github.com/nspcc-dev/neo-go-core/pkg/io"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/callflag"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
	"github.com/nspcc-dev/neo-go-core/pkg/vm/stackitem"
)

const (
	prefixOracleRequest  = 7
	prefixOracleIDCount  = 9
	maxOracleURLLength   = 256
	maxOracleFilterLen   = 128
	maxOracleUserDataLen = 512
)

// OracleRequest is a pending request for off-chain data, stored until
// an oracle node's response finishes it (spec.md §4.3 "OracleContract").
type OracleRequest struct {
	OriginalTxID     util.Uint256
	GasForResponse   int64
	URL              string
	Filter           string
	CallbackContract util.Uint160
	CallbackMethod   string
	UserData         []byte
}

// OracleContract is the native contract brokering off-chain HTTP
// requests: a contract calls request, and (outside this core's scope,
// per spec.md non-goals excluding the oracle node daemon itself) an
// oracle node later submits a response transaction that invokes finish.
type OracleContract struct {
	md     *interop.ContractMD
	GAS    *GasToken
	Policy *PolicyContract
}

// NewOracleContract builds the Oracle native with its fixed method table.
func NewOracleContract() *OracleContract {
	o := &OracleContract{md: interop.NewContractMD("OracleContract", OracleID, HashFromID(OracleID))}
	o.md.AddMethod(interop.MethodAndPrice{Func: o.request, RequiredFlags: callflag.States | callflag.AllowNotify,
		MD: manifest.Method{Name: "request", Parameters: []manifest.Parameter{
			{Name: "url", Type: "String"}, {Name: "filter", Type: "String"},
			{Name: "callback", Type: "String"}, {Name: "userData", Type: "Any"},
			{Name: "gasForResponse", Type: "Integer"},
		}, ReturnType: "Void"}})
	o.md.AddMethod(interop.MethodAndPrice{Func: o.finish, RequiredFlags: callflag.States | callflag.AllowNotify,
		MD: manifest.Method{Name: "finish", Parameters: []manifest.Parameter{{Name: "id", Type: "Integer"}}, ReturnType: "Void"}})
	o.md.AddMethod(interop.MethodAndPrice{Func: o.getPrice, RequiredFlags: callflag.ReadStates,
		MD: manifest.Method{Name: "getPrice", ReturnType: "Integer", Safe: true}})
	o.md.AddEvent(interop.Event{MD: manifest.Event{Name: "OracleRequest", Parameters: []manifest.Parameter{
		{Name: "id", Type: "Integer"}, {Name: "requestContract", Type: "Hash160"}, {Name: "url", Type: "String"}, {Name: "filter", Type: "String"},
	}}})
	o.md.AddEvent(interop.Event{MD: manifest.Event{Name: "OracleResponse", Parameters: []manifest.Parameter{
		{Name: "id", Type: "Integer"}, {Name: "originalTx", Type: "Hash256"},
	}}})
	return o
}

func (o *OracleContract) Metadata() *interop.ContractMD { return o.md }

func (o *OracleContract) Initialize(ic *interop.Context) error {
	ic.DAO.Put(o.idCountKey(), []byte{0, 0, 0, 0, 0, 0, 0, 0})
	return nil
}

func (o *OracleContract) OnPersist(ic *interop.Context) error   { return nil }
func (o *OracleContract) PostPersist(ic *interop.Context) error { return nil }

func (o *OracleContract) idCountKey() []byte { return nep17Key(o.md.ID, prefixOracleIDCount, nil) }

func (o *OracleContract) nextID(ic *interop.Context) uint64 {
	v, err := ic.DAO.Get(o.idCountKey())
	var id uint64
	if err == nil && len(v) == 8 {
		id = binary.LittleEndian.Uint64(v)
	}
	next := make([]byte, 8)
	binary.LittleEndian.PutUint64(next, id+1)
	ic.DAO.Put(o.idCountKey(), next)
	return id
}

func (o *OracleContract) requestKey(id uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], id)
	return nep17Key(o.md.ID, prefixOracleRequest, b[:])
}

const defaultOraclePrice = 5000_0000

// GetPrice is the GAS fractions an oracle request costs beyond whatever
// gasForResponse the requester reserves for the callback. The real node
// lets the committee adjust this via Policy; no such setter exists in
// this core, so it is a fixed constant regardless of Policy wiring.
func (o *OracleContract) GetPrice(ic *interop.Context) *big.Int {
	return big.NewInt(defaultOraclePrice)
}

func (o *OracleContract) getPrice(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	return stackitem.NewBigInteger(o.GetPrice(ic)), nil
}

var (
	errOracleURLTooLong      = errors.New("request: url too long")
	errOracleFilterTooLong   = errors.New("request: filter too long")
	errOracleDataTooLong     = errors.New("request: userData too long")
	errOracleNoTx            = errors.New("request: oracle requests require a transaction context")
	errOracleNotWitnessed    = errors.New("finish: missing oracle node witness")
	errOracleRequestNotFound = errors.New("finish: request not found")
)

func (o *OracleContract) request(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	url, err := args[0].TryBytes()
	if err != nil {
		return nil, err
	}
	if len(url) > maxOracleURLLength {
		return nil, errOracleURLTooLong
	}
	filter, err := args[1].TryBytes()
	if err != nil {
		return nil, err
	}
	if len(filter) > maxOracleFilterLen {
		return nil, errOracleFilterTooLong
	}
	callback, err := args[2].TryBytes()
	if err != nil {
		return nil, err
	}
	userData, err := stackitem.Serialize(args[3])
	if err != nil {
		return nil, err
	}
	if len(userData) > maxOracleUserDataLen {
		return nil, errOracleDataTooLong
	}
	gasForResponse, err := bigIntArg(args, 4)
	if err != nil {
		return nil, err
	}
	if ic.Tx == nil {
		return nil, errOracleNoTx
	}
	total := new(big.Int).Add(gasForResponse, o.GetPrice(ic))
	if o.GAS != nil {
		if err := o.GAS.Burn(ic, ic.Tx.Sender(), total); err != nil {
			return nil, err
		}
	}
	id := o.nextID(ic)
	req := OracleRequest{
		OriginalTxID: ic.Tx.Hash(), GasForResponse: gasForResponse.Int64(),
		URL: string(url), Filter: string(filter),
		CallbackContract: callingScriptHash(ic), CallbackMethod: string(callback), UserData: userData,
	}
	ic.DAO.Put(o.requestKey(id), encodeOracleRequest(req))
	ic.AddNotification(o.md.Hash, "OracleRequest", stackitem.NewArray([]stackitem.Item{
		stackitem.NewBigIntegerFromInt64(int64(id)),
		stackitem.NewByteArray(req.CallbackContract[:]),
		stackitem.NewByteArray(url),
		stackitem.NewByteArray(filter),
	}))
	return stackitem.Null{}, nil
}

// finish is invoked by the oracle-response transaction an oracle node
// submits; wiring that transaction kind into the mempool/ledger
// pipeline is out of this core's scope (spec.md non-goals exclude the
// oracle node daemon), so finish here only checks the Oracle witness
// and clears the pending request rather than re-invoking the callback
// contract.
func (o *OracleContract) finish(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	ok, err := runtime.CheckWitness(ic, HashFromID(OracleID)[:])
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errOracleNotWitnessed
	}
	id, err := bigIntArg(args, 0)
	if err != nil {
		return nil, err
	}
	key := o.requestKey(id.Uint64())
	v, err := ic.DAO.Get(key)
	if err != nil {
		return nil, errOracleRequestNotFound
	}
	req, err := decodeOracleRequest(v)
	if err != nil {
		return nil, err
	}
	ic.DAO.Delete(key)
	ic.AddNotification(o.md.Hash, "OracleResponse", stackitem.NewArray([]stackitem.Item{
		stackitem.NewBigInteger(id), stackitem.NewByteArray(req.OriginalTxID[:]),
	}))
	return stackitem.Null{}, nil
}

func encodeOracleRequest(r OracleRequest) []byte {
	w := io.NewBufBinWriter()
	w.BinWriter.WriteBytes(r.OriginalTxID[:])
	w.BinWriter.WriteU64LE(uint64(r.GasForResponse))
	w.BinWriter.WriteVarBytes([]byte(r.URL))
	w.BinWriter.WriteVarBytes([]byte(r.Filter))
	w.BinWriter.WriteBytes(r.CallbackContract[:])
	w.BinWriter.WriteVarBytes([]byte(r.CallbackMethod))
	w.BinWriter.WriteVarBytes(r.UserData)
	return w.Bytes()
}

func decodeOracleRequest(b []byte) (OracleRequest, error) {
	r := io.NewBinReaderFromBuf(b)
	var req OracleRequest
	r.ReadBytes(req.OriginalTxID[:])
	req.GasForResponse = int64(r.ReadU64LE())
	req.URL = string(r.ReadVarBytes(maxOracleURLLength))
	req.Filter = string(r.ReadVarBytes(maxOracleFilterLen))
	r.ReadBytes(req.CallbackContract[:])
	req.CallbackMethod = string(r.ReadVarBytes(64))
	req.UserData = r.ReadVarBytes(maxOracleUserDataLen)
	if r.Err != nil {
		return OracleRequest{}, r.Err
	}
	return req, nil
}
