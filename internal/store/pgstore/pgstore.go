package pgstore

import (
	"context"
	"errors"
	"time"

	betstore "github.com/AmaanSayyad/Arbnomo/internal/store"
	"github.com/AmaanSayyad/Arbnomo/pkg/betflow"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	constraintRoundPrimary  = "rounds_pkey"
	pgUniqueViolationCode   = "23505"
	errorOperationStore     = "store"
	errorSubjectProfile     = "profile"
	errorSubjectRound       = "round"
	errorSubjectCatalog     = "catalog"
	errorSubjectTransaction = "transaction"
	errorCodeAuthorize      = "authorize"
	errorCodeBegin          = "begin"
	errorCodeCommit         = "commit"
	errorCodeCredit         = "credit"
	errorCodeDebit          = "debit"
	errorCodeDuplicate      = "duplicate"
	errorCodeGet            = "get"
	errorCodeInsert         = "insert"
	errorCodeInvalid        = "invalid"
	errorCodeList           = "list"
	errorCodeLookup         = "lookup"
	errorCodeSettle         = "settle"

	sqlInsertOrGetProfile = `
		insert into profiles(wallet, metadata) values($1, '{}'::jsonb)
		on conflict (wallet) do update set wallet = excluded.wallet
		returning wallet, balance, access_code is not null
	`

	sqlSelectProfile = `
		select wallet, balance, access_code is not null
		from profiles
		where wallet = $1
	`

	sqlMarkAuthorized = `
		update profiles
		set access_code = $2, redeemed_at = to_timestamp($3), updated_at = now()
		where wallet = $1 and access_code is null
	`

	sqlCountProfiles = `
		select count(*) from profiles where wallet = $1
	`

	sqlCreditBalance = `
		update profiles
		set balance = balance + $2, updated_at = now()
		where wallet = $1
		returning wallet, balance, access_code is not null
	`

	sqlDebitBalance = `
		update profiles
		set balance = balance - $2, updated_at = now()
		where wallet = $1 and balance >= $2
		returning wallet, balance, access_code is not null
	`

	sqlInsertRound = `
		insert into rounds(round_id, wallet, target_id, stake, status, opened_at)
		values(coalesce(nullif($1,'')::uuid, gen_random_uuid()), $2, $3, $4, $5, to_timestamp($6))
	`

	sqlSettleRound = `
		update rounds
		set status = $2, payout = $3, settled_at = to_timestamp($4)
		where round_id = $1 and status = $5
	`

	sqlListRounds = `
		select
			round_id::text,
			wallet,
			target_id,
			stake,
			payout,
			status,
			extract(epoch from opened_at)::bigint,
			coalesce(extract(epoch from settled_at)::bigint, 0)
		from rounds
		where wallet = $1
		order by opened_at desc
		limit nullif($2, 0)
	`

	sqlSelectCatalog = `
		select cell_id, label, multiplier
		from target_cells
		order by position asc
	`

	sqlCountTargetCells = `
		select count(*) from target_cells
	`

	sqlInsertTargetCell = `
		insert into target_cells(cell_id, label, multiplier, position)
		values($1, $2, $3, $4)
		on conflict (cell_id) do nothing
	`
)

// Store implements betstore.Store using a pgx connection pool (autocommit).
type Store struct {
	pool *pgxpool.Pool
}

// TxStore implements betstore.Store for an active transaction.
type TxStore struct {
	tx pgx.Tx
}

// New returns a Store backed by a pgx pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore betstore.Store) error) error {
	tx, err := store.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeBegin, err)
	}
	transactionStore := &TxStore{tx: tx}
	if err := fn(ctx, transactionStore); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeCommit, err)
	}
	return nil
}

func (store *Store) EnsureProfile(ctx context.Context, wallet betflow.WalletAddress) (betflow.Profile, error) {
	var (
		walletValue  string
		balanceValue float64
		grantedValue bool
	)
	err := store.pool.QueryRow(ctx, sqlInsertOrGetProfile, wallet.String()).Scan(&walletValue, &balanceValue, &grantedValue)
	if err != nil {
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeLookup, err)
	}
	profile, err := buildProfile(walletValue, balanceValue, grantedValue)
	if err != nil {
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeInvalid, err)
	}
	return profile, nil
}

func (store *Store) GetProfile(ctx context.Context, wallet betflow.WalletAddress) (betflow.Profile, error) {
	var (
		walletValue  string
		balanceValue float64
		grantedValue bool
	)
	err := store.pool.QueryRow(ctx, sqlSelectProfile, wallet.String()).Scan(&walletValue, &balanceValue, &grantedValue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeGet, betflow.ErrUnknownProfile)
		}
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeGet, err)
	}
	profile, err := buildProfile(walletValue, balanceValue, grantedValue)
	if err != nil {
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeInvalid, err)
	}
	return profile, nil
}

func (store *Store) MarkAuthorized(ctx context.Context, wallet betflow.WalletAddress, code betflow.AccessCode, redeemedAtUnixUTC int64) error {
	tag, err := store.pool.Exec(ctx, sqlMarkAuthorized, wallet.String(), code.String(), redeemedAtUnixUTC)
	if err != nil {
		return wrapStoreError(errorSubjectProfile, errorCodeAuthorize, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var count int64
	if err := store.pool.QueryRow(ctx, sqlCountProfiles, wallet.String()).Scan(&count); err != nil {
		return wrapStoreError(errorSubjectProfile, errorCodeAuthorize, err)
	}
	if count == 0 {
		return wrapStoreError(errorSubjectProfile, errorCodeAuthorize, betflow.ErrUnknownProfile)
	}
	return nil
}

func (store *Store) CreditBalance(ctx context.Context, wallet betflow.WalletAddress, amount float64) (betflow.Profile, error) {
	grant, err := betflow.NewHouseBalance(amount)
	if err != nil {
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeInvalid, err)
	}
	var (
		walletValue  string
		balanceValue float64
		grantedValue bool
	)
	err = store.pool.QueryRow(ctx, sqlCreditBalance, wallet.String(), grant.Float64()).Scan(&walletValue, &balanceValue, &grantedValue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeCredit, betflow.ErrUnknownProfile)
		}
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeCredit, err)
	}
	profile, err := buildProfile(walletValue, balanceValue, grantedValue)
	if err != nil {
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeInvalid, err)
	}
	return profile, nil
}

func (store *Store) DebitBalance(ctx context.Context, wallet betflow.WalletAddress, amount float64) (betflow.Profile, error) {
	stake, err := betflow.NewHouseBalance(amount)
	if err != nil {
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeInvalid, err)
	}
	var (
		walletValue  string
		balanceValue float64
		grantedValue bool
	)
	err = store.pool.QueryRow(ctx, sqlDebitBalance, wallet.String(), stake.Float64()).Scan(&walletValue, &balanceValue, &grantedValue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var count int64
			if countErr := store.pool.QueryRow(ctx, sqlCountProfiles, wallet.String()).Scan(&count); countErr != nil {
				return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeDebit, countErr)
			}
			if count == 0 {
				return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeDebit, betflow.ErrUnknownProfile)
			}
			return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeDebit, betflow.ErrInsufficientFunds)
		}
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeDebit, err)
	}
	profile, err := buildProfile(walletValue, balanceValue, grantedValue)
	if err != nil {
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeInvalid, err)
	}
	return profile, nil
}

func (store *Store) OpenRound(ctx context.Context, round betflow.Round) error {
	openedAtUnixUTC := round.OpenedAtUnixUTC
	if openedAtUnixUTC == 0 {
		openedAtUnixUTC = time.Now().UTC().Unix()
	}
	_, err := store.pool.Exec(ctx, sqlInsertRound,
		round.ID,
		round.Wallet,
		round.TargetID,
		round.Stake,
		betstore.RoundStatusOpen.String(),
		openedAtUnixUTC,
	)
	if isRoundConflict(err) {
		return wrapStoreError(errorSubjectRound, errorCodeDuplicate, betflow.ErrRoundConflict)
	}
	if err != nil {
		return wrapStoreError(errorSubjectRound, errorCodeInsert, err)
	}
	return nil
}

func (store *Store) SettleRound(ctx context.Context, roundID string, payout float64, settledAtUnixUTC int64) error {
	if _, err := betflow.NewHouseBalance(payout); err != nil {
		return wrapStoreError(errorSubjectRound, errorCodeInvalid, err)
	}
	tag, err := store.pool.Exec(ctx, sqlSettleRound,
		roundID,
		betstore.RoundStatusSettled.String(),
		payout,
		settledAtUnixUTC,
		betstore.RoundStatusOpen.String(),
	)
	if err != nil {
		return wrapStoreError(errorSubjectRound, errorCodeSettle, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapStoreError(errorSubjectRound, errorCodeSettle, betflow.ErrUnknownRound)
	}
	return nil
}

func (store *Store) ListRounds(ctx context.Context, wallet betflow.WalletAddress, limit int) ([]betstore.RoundRecord, error) {
	rows, err := store.pool.Query(ctx, sqlListRounds, wallet.String(), limit)
	if err != nil {
		return nil, wrapStoreError(errorSubjectRound, errorCodeList, err)
	}
	defer rows.Close()
	records, err := scanRoundRecords(rows)
	if err != nil {
		return nil, wrapStoreError(errorSubjectRound, errorCodeInvalid, err)
	}
	return records, nil
}

func (store *Store) LoadCatalog(ctx context.Context) (betflow.Catalog, error) {
	rows, err := store.pool.Query(ctx, sqlSelectCatalog)
	if err != nil {
		return betflow.Catalog{}, wrapStoreError(errorSubjectCatalog, errorCodeList, err)
	}
	defer rows.Close()
	cells, err := scanTargetCells(rows)
	if err != nil {
		return betflow.Catalog{}, wrapStoreError(errorSubjectCatalog, errorCodeInvalid, err)
	}
	catalog, err := betflow.NewCatalog(cells)
	if err != nil {
		return betflow.Catalog{}, wrapStoreError(errorSubjectCatalog, errorCodeInvalid, err)
	}
	return catalog, nil
}

func (store *Store) SeedCatalog(ctx context.Context, cells []betflow.TargetCell) error {
	if len(cells) == 0 {
		return nil
	}
	var count int64
	if err := store.pool.QueryRow(ctx, sqlCountTargetCells).Scan(&count); err != nil {
		return wrapStoreError(errorSubjectCatalog, errorCodeLookup, err)
	}
	if count > 0 {
		return nil
	}
	for position, cell := range cells {
		if _, err := store.pool.Exec(ctx, sqlInsertTargetCell, cell.ID.String(), cell.Label, cell.Multiplier, position); err != nil {
			return wrapStoreError(errorSubjectCatalog, errorCodeInsert, err)
		}
	}
	return nil
}

func (store *TxStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore betstore.Store) error) error {
	return fn(ctx, store)
}

func (store *TxStore) EnsureProfile(ctx context.Context, wallet betflow.WalletAddress) (betflow.Profile, error) {
	var (
		walletValue  string
		balanceValue float64
		grantedValue bool
	)
	err := store.tx.QueryRow(ctx, sqlInsertOrGetProfile, wallet.String()).Scan(&walletValue, &balanceValue, &grantedValue)
	if err != nil {
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeLookup, err)
	}
	profile, err := buildProfile(walletValue, balanceValue, grantedValue)
	if err != nil {
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeInvalid, err)
	}
	return profile, nil
}

func (store *TxStore) GetProfile(ctx context.Context, wallet betflow.WalletAddress) (betflow.Profile, error) {
	var (
		walletValue  string
		balanceValue float64
		grantedValue bool
	)
	err := store.tx.QueryRow(ctx, sqlSelectProfile, wallet.String()).Scan(&walletValue, &balanceValue, &grantedValue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeGet, betflow.ErrUnknownProfile)
		}
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeGet, err)
	}
	profile, err := buildProfile(walletValue, balanceValue, grantedValue)
	if err != nil {
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeInvalid, err)
	}
	return profile, nil
}

func (store *TxStore) MarkAuthorized(ctx context.Context, wallet betflow.WalletAddress, code betflow.AccessCode, redeemedAtUnixUTC int64) error {
	tag, err := store.tx.Exec(ctx, sqlMarkAuthorized, wallet.String(), code.String(), redeemedAtUnixUTC)
	if err != nil {
		return wrapStoreError(errorSubjectProfile, errorCodeAuthorize, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var count int64
	if err := store.tx.QueryRow(ctx, sqlCountProfiles, wallet.String()).Scan(&count); err != nil {
		return wrapStoreError(errorSubjectProfile, errorCodeAuthorize, err)
	}
	if count == 0 {
		return wrapStoreError(errorSubjectProfile, errorCodeAuthorize, betflow.ErrUnknownProfile)
	}
	return nil
}

func (store *TxStore) CreditBalance(ctx context.Context, wallet betflow.WalletAddress, amount float64) (betflow.Profile, error) {
	grant, err := betflow.NewHouseBalance(amount)
	if err != nil {
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeInvalid, err)
	}
	var (
		walletValue  string
		balanceValue float64
		grantedValue bool
	)
	err = store.tx.QueryRow(ctx, sqlCreditBalance, wallet.String(), grant.Float64()).Scan(&walletValue, &balanceValue, &grantedValue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeCredit, betflow.ErrUnknownProfile)
		}
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeCredit, err)
	}
	profile, err := buildProfile(walletValue, balanceValue, grantedValue)
	if err != nil {
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeInvalid, err)
	}
	return profile, nil
}

func (store *TxStore) DebitBalance(ctx context.Context, wallet betflow.WalletAddress, amount float64) (betflow.Profile, error) {
	stake, err := betflow.NewHouseBalance(amount)
	if err != nil {
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeInvalid, err)
	}
	var (
		walletValue  string
		balanceValue float64
		grantedValue bool
	)
	err = store.tx.QueryRow(ctx, sqlDebitBalance, wallet.String(), stake.Float64()).Scan(&walletValue, &balanceValue, &grantedValue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var count int64
			if countErr := store.tx.QueryRow(ctx, sqlCountProfiles, wallet.String()).Scan(&count); countErr != nil {
				return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeDebit, countErr)
			}
			if count == 0 {
				return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeDebit, betflow.ErrUnknownProfile)
			}
			return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeDebit, betflow.ErrInsufficientFunds)
		}
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeDebit, err)
	}
	profile, err := buildProfile(walletValue, balanceValue, grantedValue)
	if err != nil {
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeInvalid, err)
	}
	return profile, nil
}

func (store *TxStore) OpenRound(ctx context.Context, round betflow.Round) error {
	openedAtUnixUTC := round.OpenedAtUnixUTC
	if openedAtUnixUTC == 0 {
		openedAtUnixUTC = time.Now().UTC().Unix()
	}
	_, err := store.tx.Exec(ctx, sqlInsertRound,
		round.ID,
		round.Wallet,
		round.TargetID,
		round.Stake,
		betstore.RoundStatusOpen.String(),
		openedAtUnixUTC,
	)
	if isRoundConflict(err) {
		return wrapStoreError(errorSubjectRound, errorCodeDuplicate, betflow.ErrRoundConflict)
	}
	if err != nil {
		return wrapStoreError(errorSubjectRound, errorCodeInsert, err)
	}
	return nil
}

func (store *TxStore) SettleRound(ctx context.Context, roundID string, payout float64, settledAtUnixUTC int64) error {
	if _, err := betflow.NewHouseBalance(payout); err != nil {
		return wrapStoreError(errorSubjectRound, errorCodeInvalid, err)
	}
	tag, err := store.tx.Exec(ctx, sqlSettleRound,
		roundID,
		betstore.RoundStatusSettled.String(),
		payout,
		settledAtUnixUTC,
		betstore.RoundStatusOpen.String(),
	)
	if err != nil {
		return wrapStoreError(errorSubjectRound, errorCodeSettle, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapStoreError(errorSubjectRound, errorCodeSettle, betflow.ErrUnknownRound)
	}
	return nil
}

func (store *TxStore) ListRounds(ctx context.Context, wallet betflow.WalletAddress, limit int) ([]betstore.RoundRecord, error) {
	rows, err := store.tx.Query(ctx, sqlListRounds, wallet.String(), limit)
	if err != nil {
		return nil, wrapStoreError(errorSubjectRound, errorCodeList, err)
	}
	defer rows.Close()
	records, err := scanRoundRecords(rows)
	if err != nil {
		return nil, wrapStoreError(errorSubjectRound, errorCodeInvalid, err)
	}
	return records, nil
}

func (store *TxStore) LoadCatalog(ctx context.Context) (betflow.Catalog, error) {
	rows, err := store.tx.Query(ctx, sqlSelectCatalog)
	if err != nil {
		return betflow.Catalog{}, wrapStoreError(errorSubjectCatalog, errorCodeList, err)
	}
	defer rows.Close()
	cells, err := scanTargetCells(rows)
	if err != nil {
		return betflow.Catalog{}, wrapStoreError(errorSubjectCatalog, errorCodeInvalid, err)
	}
	catalog, err := betflow.NewCatalog(cells)
	if err != nil {
		return betflow.Catalog{}, wrapStoreError(errorSubjectCatalog, errorCodeInvalid, err)
	}
	return catalog, nil
}

func (store *TxStore) SeedCatalog(ctx context.Context, cells []betflow.TargetCell) error {
	if len(cells) == 0 {
		return nil
	}
	var count int64
	if err := store.tx.QueryRow(ctx, sqlCountTargetCells).Scan(&count); err != nil {
		return wrapStoreError(errorSubjectCatalog, errorCodeLookup, err)
	}
	if count > 0 {
		return nil
	}
	for position, cell := range cells {
		if _, err := store.tx.Exec(ctx, sqlInsertTargetCell, cell.ID.String(), cell.Label, cell.Multiplier, position); err != nil {
			return wrapStoreError(errorSubjectCatalog, errorCodeInsert, err)
		}
	}
	return nil
}

func scanRoundRecords(rows pgx.Rows) ([]betstore.RoundRecord, error) {
	records := make([]betstore.RoundRecord, 0, 16)
	for rows.Next() {
		var (
			roundIDValue     string
			walletValue      string
			targetIDValue    string
			stakeValue       float64
			payoutValue      float64
			statusValue      string
			openedAtUnixUTC  int64
			settledAtUnixUTC int64
		)
		if err := rows.Scan(
			&roundIDValue,
			&walletValue,
			&targetIDValue,
			&stakeValue,
			&payoutValue,
			&statusValue,
			&openedAtUnixUTC,
			&settledAtUnixUTC,
		); err != nil {
			return nil, err
		}
		records = append(records, betstore.RoundRecord{
			ID:               roundIDValue,
			Wallet:           walletValue,
			TargetID:         targetIDValue,
			Stake:            stakeValue,
			Payout:           payoutValue,
			Status:           betstore.RoundStatus(statusValue),
			OpenedAtUnixUTC:  openedAtUnixUTC,
			SettledAtUnixUTC: settledAtUnixUTC,
		})
	}
	return records, rows.Err()
}

func scanTargetCells(rows pgx.Rows) ([]betflow.TargetCell, error) {
	cells := make([]betflow.TargetCell, 0, 16)
	for rows.Next() {
		var (
			cellIDValue     string
			labelValue      string
			multiplierValue float64
		)
		if err := rows.Scan(&cellIDValue, &labelValue, &multiplierValue); err != nil {
			return nil, err
		}
		cellID, err := betflow.NewTargetID(cellIDValue)
		if err != nil {
			return nil, err
		}
		cell, err := betflow.NewTargetCell(cellID, labelValue, multiplierValue)
		if err != nil {
			return nil, err
		}
		cells = append(cells, cell)
	}
	return cells, rows.Err()
}

func buildProfile(walletValue string, balanceValue float64, grantedValue bool) (betflow.Profile, error) {
	wallet, err := betflow.NewWalletAddress(walletValue)
	if err != nil {
		return betflow.Profile{}, err
	}
	balance, err := betflow.NewHouseBalance(balanceValue)
	if err != nil {
		return betflow.Profile{}, err
	}
	return betflow.Profile{
		Wallet:        wallet,
		Balance:       balance,
		AccessGranted: grantedValue,
	}, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return betflow.WrapError(errorOperationStore, subject, code, err)
}

func isRoundConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && pgErr.ConstraintName == constraintRoundPrimary
	}
	return false
}
