// Package interopnames holds the dotted syscall names recognized by the
// application engine and the content-addressed 32-bit id derivation used
// by the SYSCALL opcode (see spec.md §4.2 "fixed registry keyed by a
// 32-bit hash of a dotted name").
package interopnames

import "github.com/twmb/murmur3"

// Names of the syscalls known to this core. Prices and required call
// flags live in pkg/core/interopservice's DefaultFunctions table, which
// has no entry for System.Contract.CallNative or
// System.Runtime.GetScriptContainer.
const (
	SystemContractCall           = "System.Contract.Call"
	SystemContractCallNative     = "System.Contract.CallNative"
	SystemContractGetCallFlags   = "System.Contract.GetCallFlags"
	SystemContractCreateStandard = "System.Contract.CreateStandardAccount"
	SystemCryptoCheckSig         = "System.Crypto.CheckSig"
	SystemCryptoCheckMultisig    = "System.Crypto.CheckMultisig"
	SystemIteratorNext           = "System.Iterator.Next"
	SystemIteratorValue          = "System.Iterator.Value"
	SystemRuntimeCheckWitness    = "System.Runtime.CheckWitness"
	SystemRuntimeGasLeft         = "System.Runtime.GasLeft"
	SystemRuntimeGetNetwork      = "System.Runtime.GetNetwork"
	SystemRuntimeGetNotifications = "System.Runtime.GetNotifications"
	SystemRuntimeGetRandom       = "System.Runtime.GetRandom"
	SystemRuntimeGetScriptContainer = "System.Runtime.GetScriptContainer"
	SystemRuntimeGetTime         = "System.Runtime.GetTime"
	SystemRuntimeGetTrigger      = "System.Runtime.GetTrigger"
	SystemRuntimeLog             = "System.Runtime.Log"
	SystemRuntimeNotify          = "System.Runtime.Notify"
	SystemRuntimePlatform        = "System.Runtime.Platform"
	SystemStorageDelete          = "System.Storage.Delete"
	SystemStorageFind            = "System.Storage.Find"
	SystemStorageGet             = "System.Storage.Get"
	SystemStorageGetContext      = "System.Storage.GetContext"
	SystemStorageGetReadOnlyContext = "System.Storage.GetReadOnlyContext"
	SystemStoragePut             = "System.Storage.Put"
	SystemStorageAsReadOnly      = "System.Storage.AsReadOnly"
)

// ToID converts a syscall name to its 4-byte little-endian murmur32 id,
// matching the wire encoding of the SYSCALL instruction's immediate.
func ToID(name []byte) []byte {
	h := murmur3.Sum32(name)
	return []byte{byte(h), byte(h >> 8), byte(h >> 16), byte(h >> 24)}
}

// ToHash returns the 32-bit syscall id as a uint32, as stored in the
// interop function registry and compared against the SYSCALL immediate.
func ToHash(name string) uint32 {
	return murmur3.Sum32([]byte(name))
}
