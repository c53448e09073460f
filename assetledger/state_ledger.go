package assetledger

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"

	"github.com/tos-network/gstake/derive"
	"github.com/tos-network/gstake/faults"
	"github.com/tos-network/gstake/params"
	"github.com/tos-network/gstake/state"
)

// ErrDecimalsRange is returned when an asset is registered with more decimals
// than a uint64 amount can scale by.
var ErrDecimalsRange = errors.New("assetledger: decimals out of range")

// --- slot derivation ---

func assetSlot(asset common.Address, field string) common.Hash {
	buf := make([]byte, 0, len("gstake.ledger.asset")+common.AddressLength+1+len(field))
	buf = append(buf, "gstake.ledger.asset"...)
	buf = append(buf, asset.Bytes()...)
	buf = append(buf, 0x00)
	buf = append(buf, field...)
	return common.BytesToHash(crypto.Keccak256(buf))
}

func accountSlot(asset, holder common.Address, field string) common.Hash {
	buf := make([]byte, 0, len("gstake.ledger.account")+2*common.AddressLength+1+len(field))
	buf = append(buf, "gstake.ledger.account"...)
	buf = append(buf, asset.Bytes()...)
	buf = append(buf, holder.Bytes()...)
	buf = append(buf, 0x00)
	buf = append(buf, field...)
	return common.BytesToHash(crypto.Keccak256(buf))
}

func nativeSlot(holder common.Address) common.Hash {
	return crypto.Keccak256Hash([]byte("gstake.ledger.native"), holder.Bytes())
}

// StateLedger keeps balances as slots under params.LedgerAddress.
type StateLedger struct {
	db state.Store
}

// NewStateLedger returns a ledger over db.
func NewStateLedger(db state.Store) *StateLedger {
	return &StateLedger{db: db}
}

func (l *StateLedger) readUint64(slot common.Hash) uint64 {
	raw := l.db.GetState(params.LedgerAddress, slot)
	return binary.BigEndian.Uint64(raw[24:])
}

func (l *StateLedger) writeUint64(slot common.Hash, n uint64) {
	var word common.Hash
	binary.BigEndian.PutUint64(word[24:], n)
	l.db.SetState(params.LedgerAddress, slot, word)
}

func (l *StateLedger) readAddress(slot common.Hash) common.Address {
	return common.BytesToAddress(l.db.GetState(params.LedgerAddress, slot).Bytes())
}

func (l *StateLedger) writeAddress(slot common.Hash, addr common.Address) {
	l.db.SetState(params.LedgerAddress, slot, common.BytesToHash(addr.Bytes()))
}

// --- admin ---

// RegisterAsset records asset with decimals. Re-registering updates nothing
// but the decimals.
func (l *StateLedger) RegisterAsset(asset common.Address, decimals uint8) error {
	if decimals > params.MaxAssetDecimals {
		return fmt.Errorf("%w: %d", ErrDecimalsRange, decimals)
	}
	// Decimals are stored off by one so a registered zero-decimal asset is
	// distinguishable from an unknown one.
	l.writeUint64(assetSlot(asset, "decimals"), uint64(decimals)+1)
	log.Debug("ledger: registered asset", "asset", asset, "decimals", decimals)
	return nil
}

// Registered reports whether asset is known to the ledger.
func (l *StateLedger) Registered(asset common.Address) bool {
	return l.readUint64(assetSlot(asset, "decimals")) != 0
}

// Supply returns the circulating amount of asset.
func (l *StateLedger) Supply(asset common.Address) uint64 {
	return l.readUint64(assetSlot(asset, "supply"))
}

// Mint creates amount of asset in to's account.
func (l *StateLedger) Mint(asset, to common.Address, amount uint64) error {
	if !l.Registered(asset) {
		return faults.ErrUnknownAsset
	}
	supply, overflow := math.SafeAdd(l.Supply(asset), amount)
	if overflow {
		return faults.ErrOverflow
	}
	if err := l.credit(asset, to, amount); err != nil {
		return err
	}
	l.writeUint64(assetSlot(asset, "supply"), supply)
	return nil
}

// CreditNative creates amount of native currency in to's account.
func (l *StateLedger) CreditNative(to common.Address, amount uint64) error {
	bal, overflow := math.SafeAdd(l.NativeBalance(to), amount)
	if overflow {
		return faults.ErrOverflow
	}
	l.writeUint64(nativeSlot(to), bal)
	return nil
}

// --- Ledger ---

// Decimals implements Ledger.
func (l *StateLedger) Decimals(asset common.Address) (uint8, error) {
	stored := l.readUint64(assetSlot(asset, "decimals"))
	if stored == 0 {
		return 0, faults.ErrUnknownAsset
	}
	return uint8(stored - 1), nil
}

// BalanceOf implements Ledger.
func (l *StateLedger) BalanceOf(asset, holder common.Address) uint64 {
	return l.readUint64(accountSlot(asset, holder, "balance"))
}

// NativeBalance implements Ledger.
func (l *StateLedger) NativeBalance(holder common.Address) uint64 {
	return l.readUint64(nativeSlot(holder))
}

// AuthorityOf returns the authority of an opened account, or the zero
// address for an account its holder controls directly.
func (l *StateLedger) AuthorityOf(asset, holder common.Address) common.Address {
	return l.readAddress(accountSlot(asset, holder, "authority"))
}

// OpenAccount implements Ledger.
func (l *StateLedger) OpenAccount(asset, holder, authority common.Address) error {
	if !l.Registered(asset) {
		return faults.ErrUnknownAsset
	}
	current := l.AuthorityOf(asset, holder)
	switch current {
	case authority:
		return nil
	case common.Address{}:
		l.writeAddress(accountSlot(asset, holder, "authority"), authority)
		log.Trace("ledger: opened account", "asset", asset, "holder", holder, "authority", authority)
		return nil
	}
	return fmt.Errorf("%w: account %x already opened for %x", faults.ErrAssetMismatch, holder, current)
}

// authorize checks that auth may debit holder's account of asset.
func (l *StateLedger) authorize(asset, holder common.Address, auth Signer) error {
	authority := l.AuthorityOf(asset, holder)
	if auth.Proof != nil {
		if err := derive.Verify(auth.Proof, auth.Address); err != nil {
			return fmt.Errorf("%w: %w", faults.ErrTransferUnauthorized, err)
		}
		if authority == (common.Address{}) {
			// Custody accounts must be opened before the program can sign for them.
			return fmt.Errorf("%w: account %x not opened for asset %x", faults.ErrAssetMismatch, holder, asset)
		}
		if authority != auth.Address {
			return faults.ErrTransferUnauthorized
		}
		return nil
	}
	if authority != (common.Address{}) || auth.Address != holder {
		return faults.ErrTransferUnauthorized
	}
	return nil
}

func (l *StateLedger) debit(asset, holder common.Address, amount uint64) error {
	bal := l.BalanceOf(asset, holder)
	if bal < amount {
		return fmt.Errorf("%w: have %d, need %d", faults.ErrInsufficientBalance, bal, amount)
	}
	l.writeUint64(accountSlot(asset, holder, "balance"), bal-amount)
	return nil
}

func (l *StateLedger) credit(asset, holder common.Address, amount uint64) error {
	bal, overflow := math.SafeAdd(l.BalanceOf(asset, holder), amount)
	if overflow {
		return faults.ErrOverflow
	}
	l.writeUint64(accountSlot(asset, holder, "balance"), bal)
	return nil
}

// Transfer implements Ledger.
func (l *StateLedger) Transfer(asset, from, to common.Address, amount uint64, auth Signer) error {
	if !l.Registered(asset) {
		return faults.ErrUnknownAsset
	}
	if err := l.authorize(asset, from, auth); err != nil {
		return err
	}
	if err := l.debit(asset, from, amount); err != nil {
		return err
	}
	if err := l.credit(asset, to, amount); err != nil {
		return err
	}
	log.Trace("ledger: transfer", "asset", asset, "from", from, "to", to, "amount", amount)
	return nil
}

// TransferNative implements Ledger. Native accounts have no separate
// authority; a derived signer must re-derive to the debited account itself.
func (l *StateLedger) TransferNative(from, to common.Address, amount uint64, auth Signer) error {
	if auth.Proof != nil {
		if err := derive.Verify(auth.Proof, from); err != nil {
			return fmt.Errorf("%w: %w", faults.ErrTransferUnauthorized, err)
		}
	} else if auth.Address != from {
		return faults.ErrTransferUnauthorized
	}
	bal := l.NativeBalance(from)
	if bal < amount {
		return fmt.Errorf("%w: have %d, need %d", faults.ErrInsufficientBalance, bal, amount)
	}
	dst, overflow := math.SafeAdd(l.NativeBalance(to), amount)
	if overflow && from != to {
		return faults.ErrOverflow
	}
	l.writeUint64(nativeSlot(from), bal-amount)
	if from == to {
		dst = bal
	}
	l.writeUint64(nativeSlot(to), dst)
	log.Trace("ledger: native transfer", "from", from, "to", to, "amount", amount)
	return nil
}

// Burn implements Ledger.
func (l *StateLedger) Burn(asset, from common.Address, amount uint64, auth Signer) error {
	if !l.Registered(asset) {
		return faults.ErrUnknownAsset
	}
	if err := l.authorize(asset, from, auth); err != nil {
		return err
	}
	if err := l.debit(asset, from, amount); err != nil {
		return err
	}
	supply := l.Supply(asset)
	if supply < amount {
		return faults.ErrUnderflow
	}
	l.writeUint64(assetSlot(asset, "supply"), supply-amount)
	log.Trace("ledger: burn", "asset", asset, "from", from, "amount", amount)
	return nil
}

var _ Ledger = (*StateLedger)(nil)
