package gormstore

import (
	"context"
	"errors"
	"time"

	betstore "github.com/AmaanSayyad/Arbnomo/internal/store"
	"github.com/AmaanSayyad/Arbnomo/pkg/betflow"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	constraintCatalogPrimary = "target_cells_pkey"
	constraintRoundPrimary   = "rounds_pkey"
	defaultMetadataJSON      = "{}"
	pgUniqueViolationCode    = "23505"
	sqliteConstraintCode     = 19
	errorOperationStore      = "store"
	errorSubjectProfile      = "profile"
	errorSubjectRound        = "round"
	errorSubjectCatalog      = "catalog"
	errorCodeAuthorize       = "authorize"
	errorCodeCredit          = "credit"
	errorCodeDebit           = "debit"
	errorCodeDuplicate       = "duplicate"
	errorCodeGet             = "get"
	errorCodeInsert          = "insert"
	errorCodeInvalid         = "invalid"
	errorCodeList            = "list"
	errorCodeLookup          = "lookup"
	errorCodeSettle          = "settle"
)

// Store implements betstore.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore betstore.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

func (store *Store) EnsureProfile(ctx context.Context, wallet betflow.WalletAddress) (betflow.Profile, error) {
	var model Profile
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "wallet"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"wallet": clause.Expr{SQL: "excluded.wallet"},
			}),
		}).
		Where(Profile{Wallet: wallet.String()}).
		Attrs(Profile{Metadata: datatypesJSON("")}).
		FirstOrCreate(&model).Error
	if err != nil {
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeLookup, err)
	}
	profile, err := mapProfile(model)
	if err != nil {
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeInvalid, err)
	}
	return profile, nil
}

func (store *Store) GetProfile(ctx context.Context, wallet betflow.WalletAddress) (betflow.Profile, error) {
	var model Profile
	err := store.db.WithContext(ctx).
		Where("wallet = ?", wallet.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeGet, betflow.ErrUnknownProfile)
		}
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeGet, err)
	}
	profile, err := mapProfile(model)
	if err != nil {
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeInvalid, err)
	}
	return profile, nil
}

func (store *Store) MarkAuthorized(ctx context.Context, wallet betflow.WalletAddress, code betflow.AccessCode, redeemedAtUnixUTC int64) error {
	redeemedAt := time.Unix(redeemedAtUnixUTC, 0).UTC()
	result := store.db.WithContext(ctx).
		Model(&Profile{}).
		Where("wallet = ? AND access_code IS NULL", wallet.String()).
		Updates(map[string]interface{}{
			"access_code": code.String(),
			"redeemed_at": redeemedAt,
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectProfile, errorCodeAuthorize, result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}
	var count int64
	if err := store.db.WithContext(ctx).Model(&Profile{}).Where("wallet = ?", wallet.String()).Count(&count).Error; err != nil {
		return wrapStoreError(errorSubjectProfile, errorCodeAuthorize, err)
	}
	if count == 0 {
		return wrapStoreError(errorSubjectProfile, errorCodeAuthorize, betflow.ErrUnknownProfile)
	}
	// A code is already recorded for the wallet; re-verification keeps it.
	return nil
}

func (store *Store) CreditBalance(ctx context.Context, wallet betflow.WalletAddress, amount float64) (betflow.Profile, error) {
	grant, err := betflow.NewHouseBalance(amount)
	if err != nil {
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeInvalid, err)
	}
	result := store.db.WithContext(ctx).
		Model(&Profile{}).
		Where("wallet = ?", wallet.String()).
		Update("balance", gorm.Expr("balance + ?", grant.Float64()))
	if result.Error != nil {
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeCredit, result.Error)
	}
	if result.RowsAffected == 0 {
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeCredit, betflow.ErrUnknownProfile)
	}
	return store.GetProfile(ctx, wallet)
}

func (store *Store) DebitBalance(ctx context.Context, wallet betflow.WalletAddress, amount float64) (betflow.Profile, error) {
	stake, err := betflow.NewHouseBalance(amount)
	if err != nil {
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeInvalid, err)
	}
	result := store.db.WithContext(ctx).
		Model(&Profile{}).
		Where("wallet = ? AND balance >= ?", wallet.String(), stake.Float64()).
		Update("balance", gorm.Expr("balance - ?", stake.Float64()))
	if result.Error != nil {
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeDebit, result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := store.GetProfile(ctx, wallet); err != nil {
			return betflow.Profile{}, err
		}
		return betflow.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeDebit, betflow.ErrInsufficientFunds)
	}
	return store.GetProfile(ctx, wallet)
}

func (store *Store) OpenRound(ctx context.Context, round betflow.Round) error {
	model := Round{
		RoundID:  round.ID,
		Wallet:   round.Wallet,
		TargetID: round.TargetID,
		Stake:    round.Stake,
		Status:   betstore.RoundStatusOpen.String(),
		OpenedAt: time.Unix(round.OpenedAtUnixUTC, 0).UTC(),
	}
	if round.OpenedAtUnixUTC == 0 {
		model.OpenedAt = time.Now().UTC()
	}
	err := store.db.WithContext(ctx).Create(&model).Error
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
	settledAt := time.Unix(settledAtUnixUTC, 0).UTC()
	result := store.db.WithContext(ctx).
		Model(&Round{}).
		Where("round_id = ? AND status = ?", roundID, betstore.RoundStatusOpen.String()).
		Updates(map[string]interface{}{
			"status":     betstore.RoundStatusSettled.String(),
			"payout":     payout,
			"settled_at": settledAt,
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectRound, errorCodeSettle, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectRound, errorCodeSettle, betflow.ErrUnknownRound)
	}
	return nil
}

func (store *Store) ListRounds(ctx context.Context, wallet betflow.WalletAddress, limit int) ([]betstore.RoundRecord, error) {
	query := store.db.WithContext(ctx).
		Where("wallet = ?", wallet.String()).
		Order("opened_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []Round
	if err := query.Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectRound, errorCodeList, err)
	}
	records := make([]betstore.RoundRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, mapRoundRecord(row))
	}
	return records, nil
}

func (store *Store) LoadCatalog(ctx context.Context) (betflow.Catalog, error) {
	var rows []TargetCell
	err := store.db.WithContext(ctx).
		Order("position ASC").
		Find(&rows).Error
	if err != nil {
		return betflow.Catalog{}, wrapStoreError(errorSubjectCatalog, errorCodeList, err)
	}
	cells := make([]betflow.TargetCell, 0, len(rows))
	for _, row := range rows {
		cell, err := mapTargetCell(row)
		if err != nil {
			return betflow.Catalog{}, wrapStoreError(errorSubjectCatalog, errorCodeInvalid, err)
		}
		cells = append(cells, cell)
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
	if err := store.db.WithContext(ctx).Model(&TargetCell{}).Count(&count).Error; err != nil {
		return wrapStoreError(errorSubjectCatalog, errorCodeLookup, err)
	}
	if count > 0 {
		return nil
	}
	rows := make([]TargetCell, 0, len(cells))
	for position, cell := range cells {
		rows = append(rows, TargetCell{
			CellID:     cell.ID.String(),
			Label:      cell.Label,
			Multiplier: cell.Multiplier,
			Position:   position,
		})
	}
	err := store.db.WithContext(ctx).Create(&rows).Error
	if isCatalogConflict(err) {
		// Another seeder already populated the catalog.
		return nil
	}
	if err != nil {
		return wrapStoreError(errorSubjectCatalog, errorCodeInsert, err)
	}
	return nil
}

func wrapStoreError(subject string, code string, err error) error {
	return betflow.WrapError(errorOperationStore, subject, code, err)
}

func mapProfile(row Profile) (betflow.Profile, error) {
	wallet, err := betflow.NewWalletAddress(row.Wallet)
	if err != nil {
		return betflow.Profile{}, err
	}
	balance, err := betflow.NewHouseBalance(row.Balance)
	if err != nil {
		return betflow.Profile{}, err
	}
	return betflow.Profile{
		Wallet:        wallet,
		Balance:       balance,
		AccessGranted: row.AccessCode != nil,
	}, nil
}

func mapRoundRecord(row Round) betstore.RoundRecord {
	return betstore.RoundRecord{
		ID:               row.RoundID,
		Wallet:           row.Wallet,
		TargetID:         row.TargetID,
		Stake:            row.Stake,
		Payout:           row.Payout,
		Status:           betstore.RoundStatus(row.Status),
		OpenedAtUnixUTC:  row.OpenedAt.Unix(),
		SettledAtUnixUTC: timeOrZero(row.SettledAt),
	}
}

func mapTargetCell(row TargetCell) (betflow.TargetCell, error) {
	id, err := betflow.NewTargetID(row.CellID)
	if err != nil {
		return betflow.TargetCell{}, err
	}
	return betflow.NewTargetCell(id, row.Label, row.Multiplier)
}

func timeOrZero(value *time.Time) int64 {
	if value == nil {
		return 0
	}
	return value.Unix()
}

func datatypesJSON(raw string) datatypes.JSON {
	if raw == "" {
		return datatypes.JSON([]byte(defaultMetadataJSON))
	}
	return datatypes.JSON([]byte(raw))
}

func isRoundConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && pgErr.ConstraintName == constraintRoundPrimary
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}

func isCatalogConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && pgErr.ConstraintName == constraintCatalogPrimary
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
