package ledger

import (
	"context"

	"github.com/Haleralex/walletledger/internal/application/ports"
	"github.com/Haleralex/walletledger/internal/domain/entities"
	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/Haleralex/walletledger/internal/domain/valueobjects"
	"github.com/google/uuid"
)

// Posting primitives. Every money movement in the system reduces to one of
// these balanced two-line entries:
//
//	TRANSFER / INTENT_PAY / DEPOSIT   payer AVAILABLE → payee AVAILABLE
//	HOLD                              payer AVAILABLE → payer HELD
//	CAPTURE                           payer HELD      → payee AVAILABLE
//	RELEASE                           payer HELD      → payer AVAILABLE
//	REFUND                            payee AVAILABLE → payer AVAILABLE
//
// Builders only construct entries; callers validate balances under locks
// before saving.

func availableMovement(kind entities.EntryKind, payerID, payeeID uuid.UUID, amount valueobjects.Money, linked *uuid.UUID, description string) (*entities.JournalEntry, error) {
	debit, err := entities.NewJournalLine(payerID, entities.SideDebit, entities.BucketAvailable, amount)
	if err != nil {
		return nil, err
	}
	credit, err := entities.NewJournalLine(payeeID, entities.SideCredit, entities.BucketAvailable, amount)
	if err != nil {
		return nil, err
	}
	return entities.NewJournalEntry(kind, []entities.JournalLine{debit, credit}, linked, description)
}

func buildTransferEntry(payerID, payeeID uuid.UUID, amount valueobjects.Money, description string) (*entities.JournalEntry, error) {
	return availableMovement(entities.EntryKindTransfer, payerID, payeeID, amount, nil, description)
}

func buildDepositEntry(systemID, payeeID uuid.UUID, amount valueobjects.Money, description string) (*entities.JournalEntry, error) {
	return availableMovement(entities.EntryKindDeposit, systemID, payeeID, amount, nil, description)
}

func buildIntentPayEntry(payerID, payeeID uuid.UUID, amount valueobjects.Money, description string) (*entities.JournalEntry, error) {
	return availableMovement(entities.EntryKindIntentPay, payerID, payeeID, amount, nil, description)
}

func buildRefundEntry(payeeID, payerID uuid.UUID, amount valueobjects.Money, captureEntryID uuid.UUID, description string) (*entities.JournalEntry, error) {
	return availableMovement(entities.EntryKindRefund, payeeID, payerID, amount, &captureEntryID, description)
}

func buildHoldEntry(payerID uuid.UUID, amount valueobjects.Money, description string) (*entities.JournalEntry, error) {
	debit, err := entities.NewJournalLine(payerID, entities.SideDebit, entities.BucketAvailable, amount)
	if err != nil {
		return nil, err
	}
	credit, err := entities.NewJournalLine(payerID, entities.SideCredit, entities.BucketHeld, amount)
	if err != nil {
		return nil, err
	}
	return entities.NewJournalEntry(entities.EntryKindHold, []entities.JournalLine{debit, credit}, nil, description)
}

func buildCaptureEntry(payerID, payeeID uuid.UUID, amount valueobjects.Money, holdEntryID uuid.UUID, description string) (*entities.JournalEntry, error) {
	debit, err := entities.NewJournalLine(payerID, entities.SideDebit, entities.BucketHeld, amount)
	if err != nil {
		return nil, err
	}
	credit, err := entities.NewJournalLine(payeeID, entities.SideCredit, entities.BucketAvailable, amount)
	if err != nil {
		return nil, err
	}
	return entities.NewJournalEntry(entities.EntryKindCapture, []entities.JournalLine{debit, credit}, &holdEntryID, description)
}

func buildReleaseEntry(payerID uuid.UUID, amount valueobjects.Money, holdEntryID uuid.UUID, description string) (*entities.JournalEntry, error) {
	debit, err := entities.NewJournalLine(payerID, entities.SideDebit, entities.BucketHeld, amount)
	if err != nil {
		return nil, err
	}
	credit, err := entities.NewJournalLine(payerID, entities.SideCredit, entities.BucketAvailable, amount)
	if err != nil {
		return nil, err
	}
	return entities.NewJournalEntry(entities.EntryKindRelease, []entities.JournalLine{debit, credit}, &holdEntryID, description)
}

// loadSenderAccount loads the caller's wallet, verifies it may send, and
// finds its account in the currency.
func loadSenderAccount(
	txCtx context.Context,
	walletRepo ports.WalletRepository,
	accountRepo ports.AccountRepository,
	walletID uuid.UUID,
	currency valueobjects.Currency,
) (*entities.Wallet, *entities.LedgerAccount, error) {
	wallet, err := walletRepo.FindByID(txCtx, walletID)
	if err != nil {
		return nil, nil, errors.Wrap(errors.CodeStore, "loading wallet", err)
	}
	if err := wallet.CanSend(); err != nil {
		return nil, nil, err
	}
	account, err := accountRepo.FindByWallet(txCtx, walletID, currency)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil, errors.Newf(errors.CodeCurrencyMismatch,
				"wallet has no %s account", currency.Code())
		}
		return nil, nil, errors.Wrap(errors.CodeStore, "loading account", err)
	}
	return wallet, account, nil
}

// loadRecipientAccount resolves the recipient reference, verifies the wallet
// may receive, and finds its account in the currency.
func loadRecipientAccount(
	txCtx context.Context,
	resolver *RecipientResolver,
	accountRepo ports.AccountRepository,
	ref string,
	currency valueobjects.Currency,
) (*entities.Wallet, *entities.LedgerAccount, error) {
	wallet, err := resolver.Resolve(txCtx, ref)
	if err != nil {
		return nil, nil, err
	}
	if err := wallet.CanReceive(); err != nil {
		return nil, nil, err
	}
	account, err := accountRepo.FindByWallet(txCtx, wallet.ID(), currency)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil, errors.Newf(errors.CodeCurrencyMismatch,
				"recipient has no %s account", currency.Code())
		}
		return nil, nil, errors.Wrap(errors.CodeStore, "loading recipient account", err)
	}
	return wallet, account, nil
}

// loadOwnedHold loads a hold and verifies the caller's wallet is its payer.
// Holds belonging to other wallets are indistinguishable from missing ones.
func loadOwnedHold(
	txCtx context.Context,
	holdRepo ports.HoldRepository,
	accountRepo ports.AccountRepository,
	holdID uuid.UUID,
	walletID uuid.UUID,
) (*entities.Hold, *entities.LedgerAccount, error) {
	hold, err := holdRepo.FindByID(txCtx, holdID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil, errors.New(errors.CodeNotFound, "hold not found")
		}
		return nil, nil, errors.Wrap(errors.CodeStore, "loading hold", err)
	}
	payerAcc, err := accountRepo.FindByID(txCtx, hold.PayerAccountID())
	if err != nil {
		return nil, nil, errors.Wrap(errors.CodeStore, "loading payer account", err)
	}
	if payerAcc.WalletID() != walletID {
		return nil, nil, errors.New(errors.CodeNotFound, "hold not found")
	}
	return hold, payerAcc, nil
}

// parseAmount validates and parses a positive decimal amount in the currency.
func parseAmount(amountStr, currencyCode string) (valueobjects.Money, error) {
	currency, err := valueobjects.NewCurrency(currencyCode)
	if err != nil {
		return valueobjects.Money{}, errors.Newf(errors.CodeValidation, "unsupported currency %q", currencyCode)
	}
	amount, err := valueobjects.ParseMoney(amountStr, currency)
	if err != nil {
		return valueobjects.Money{}, errors.Wrap(errors.CodeValidation, "invalid amount", err)
	}
	if !amount.IsPositive() {
		return valueobjects.Money{}, errors.New(errors.CodeValidation, "amount must be positive")
	}
	return amount, nil
}

// lockAccounts takes row locks on the given accounts (the repository orders
// them by id) and returns them keyed by id.
func lockAccounts(txCtx context.Context, accountRepo ports.AccountRepository, ids ...uuid.UUID) (map[uuid.UUID]*entities.LedgerAccount, error) {
	unique := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	locked, err := accountRepo.LockByIDs(txCtx, unique)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStore, "locking accounts", err)
	}
	if len(locked) != len(unique) {
		return nil, errors.New(errors.CodeStore, "account vanished under lock")
	}

	byID := make(map[uuid.UUID]*entities.LedgerAccount, len(locked))
	for _, acc := range locked {
		byID[acc.ID()] = acc
	}
	return byID, nil
}

// checkAvailable derives the payer's balance under lock and verifies the
// available bucket can fund the amount.
func checkAvailable(txCtx context.Context, accountRepo ports.AccountRepository, account *entities.LedgerAccount, amount valueobjects.Money) error {
	balance, err := accountRepo.GetBalance(txCtx, account.ID())
	if err != nil {
		return errors.Wrap(errors.CodeStore, "deriving balance", err)
	}
	return balance.CheckAvailable(amount, account.IsSystem())
}
