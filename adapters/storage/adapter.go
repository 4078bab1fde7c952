// Package storage persists the billing rule corpus and parking orders
// behind the engine. It owns the write-time overlap guard; the engine
// only ever sees decoded, validated snapshots.
package storage

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"parkfee/core/billing"
	"parkfee/core/fee"
	"parkfee/core/money"
	"parkfee/core/resolve"
	"parkfee/internal/errors"
	"parkfee/internal/logging"
)

// Store is the sqlite-backed configuration and order store.
type Store struct {
	db        *gorm.DB
	log       *zap.Logger
	node      *snowflake.Node
	defaultTZ string
}

// Open opens (and migrates) the store at the given path. Use
// "file::memory:?cache=shared" for an in-memory store.
func Open(path string, nodeID int64, defaultTZ string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Storage("open database", err)
	}
	if err := db.AutoMigrate(&RuleRecord{}, &VersionRecord{}, &OrderRecord{}, &VerificationRecord{}); err != nil {
		return nil, errors.Storage("migrate schema", err)
	}
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, errors.Storage("init order number generator", err)
	}
	return &Store{
		db:        db,
		log:       logging.Named("storage"),
		node:      node,
		defaultTZ: defaultTZ,
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpsertRuleRequest creates or updates a rule and appends one version.
type UpsertRuleRequest struct {
	RuleCode string            `json:"rule_code"`
	Name     string            `json:"name"`
	Status   string            `json:"status"`
	Scope    ScopeDoc          `json:"scope"`
	Version  billing.VersionDoc `json:"version"`
}

// ScopeDoc is the wire shape of a rule scope.
type ScopeDoc struct {
	CityCode string   `json:"city_code"`
	LotCodes []string `json:"lot_codes"`
}

// UpsertRule creates or updates the rule master row and appends a new
// version, enforcing the same-priority effective-range overlap guard.
// Versions are append-only; existing rows are never rewritten.
func (s *Store) UpsertRule(req UpsertRuleRequest) (*billing.Rule, error) {
	if req.RuleCode == "" {
		return nil, errors.Input("rule_code is required")
	}
	status := req.Status
	if status == "" {
		status = string(billing.StatusEnabled)
	}
	if status != string(billing.StatusEnabled) && status != string(billing.StatusDisabled) {
		return nil, errors.Newf(errors.TypeInput, "invalid status %q", status)
	}

	payload, err := json.Marshal(billing.VersionDoc{
		EffectiveFrom: req.Version.EffectiveFrom,
		EffectiveTo:   req.Version.EffectiveTo,
		Priority:      req.Version.Priority,
		RulePayload:   req.Version.RulePayload,
	})
	if err != nil {
		return nil, errors.Storage("encode version", err)
	}
	// Decode through the engine codec so a bad payload is rejected
	// before it is persisted.
	next, err := billing.DecodeVersion(payload, 0, s.defaultTZ)
	if err != nil {
		return nil, err
	}

	lotCodes, err := json.Marshal(dedupe(req.Scope.LotCodes))
	if err != nil {
		return nil, errors.Storage("encode lot codes", err)
	}

	var out *billing.Rule
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var record RuleRecord
		res := tx.Where("rule_code = ?", req.RuleCode).Limit(1).Find(&record)
		if res.Error != nil {
			return errors.Storage("load rule", res.Error)
		}

		record.RuleCode = req.RuleCode
		record.Name = req.Name
		record.Status = status
		record.RegionCode = req.Scope.CityCode
		record.LotCodes = string(lotCodes)
		if err := tx.Save(&record).Error; err != nil {
			return errors.Storage("save rule", err)
		}

		var versionRecords []VersionRecord
		if err := tx.Where("rule_id = ?", record.ID).Order("version_no").Find(&versionRecords).Error; err != nil {
			return errors.Storage("load versions", err)
		}

		existing := make([]billing.Version, 0, len(versionRecords))
		maxNo := 0
		for _, vr := range versionRecords {
			existing = append(existing, billing.Version{
				VersionNo:     vr.VersionNo,
				EffectiveFrom: vr.EffectiveFrom,
				EffectiveTo:   vr.EffectiveTo,
				Priority:      vr.Priority,
			})
			if vr.VersionNo > maxNo {
				maxNo = vr.VersionNo
			}
		}
		if err := resolve.CheckOverlap(existing, next); err != nil {
			s.log.Warn("version overlap rejected",
				zap.String("rule_code", req.RuleCode),
				zap.Error(err))
			return err
		}

		segPayload, err := json.Marshal(req.Version.RulePayload)
		if err != nil {
			return errors.Storage("encode payload", err)
		}
		newRecord := VersionRecord{
			RuleID:        record.ID,
			VersionNo:     maxNo + 1,
			EffectiveFrom: req.Version.EffectiveFrom,
			EffectiveTo:   req.Version.EffectiveTo,
			Priority:      req.Version.Priority,
			RulePayload:   string(segPayload),
		}
		if err := tx.Create(&newRecord).Error; err != nil {
			return errors.Storage("append version", err)
		}

		rule, err := s.decodeRule(tx, record)
		if err != nil {
			return err
		}
		out = rule
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("rule upserted",
		zap.String("rule_code", out.RuleCode),
		zap.Int("version_count", len(out.Versions)))
	return out, nil
}

// GetRule loads one rule with its full version history.
func (s *Store) GetRule(ruleCode string) (*billing.Rule, error) {
	var record RuleRecord
	res := s.db.Where("rule_code = ?", ruleCode).Limit(1).Find(&record)
	if res.Error != nil {
		return nil, errors.Storage("load rule", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errors.NotFound("billing rule", ruleCode)
	}
	return s.decodeRule(s.db, record)
}

// ListRules lists rules, optionally filtered by region and lot code.
// A lot filter matches rules naming the lot explicitly and region-wide
// rules covering it.
func (s *Store) ListRules(regionCode, lotCode string) ([]billing.Rule, error) {
	query := s.db.Order("id")
	if regionCode != "" {
		query = query.Where("region_code = ?", regionCode)
	}
	var records []RuleRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, errors.Storage("list rules", err)
	}

	var rules []billing.Rule
	for _, record := range records {
		rule, err := s.decodeRule(s.db, record)
		if err != nil {
			return nil, err
		}
		if lotCode != "" && !rule.Scope.Matches(rule.Scope.RegionCode, lotCode) {
			continue
		}
		rules = append(rules, *rule)
	}
	return rules, nil
}

// Snapshot loads every enabled rule for a region as one consistent
// corpus for a single engine invocation.
func (s *Store) Snapshot(regionCode string) ([]billing.Rule, error) {
	query := s.db.Where("status = ?", string(billing.StatusEnabled)).Order("id")
	if regionCode != "" {
		query = query.Where("region_code = ?", regionCode)
	}
	var records []RuleRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, errors.Storage("load corpus", err)
	}

	rules := make([]billing.Rule, 0, len(records))
	for _, record := range records {
		rule, err := s.decodeRule(s.db, record)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	return rules, nil
}

func (s *Store) decodeRule(tx *gorm.DB, record RuleRecord) (*billing.Rule, error) {
	var versionRecords []VersionRecord
	if err := tx.Where("rule_id = ?", record.ID).Order("version_no").Find(&versionRecords).Error; err != nil {
		return nil, errors.Storage("load versions", err)
	}

	rule := &billing.Rule{
		RuleCode: record.RuleCode,
		Name:     record.Name,
		Status:   billing.Status(record.Status),
		Scope: billing.Scope{
			RegionCode: record.RegionCode,
			LotCodes:   record.lotCodes(),
		},
	}
	for _, vr := range versionRecords {
		segments, err := billing.DecodeSegments([]byte(vr.RulePayload), s.defaultTZ)
		if err != nil {
			return nil, errors.Wrapf(errors.TypeStorage, err,
				"rule %s version %d payload", record.RuleCode, vr.VersionNo)
		}
		rule.Versions = append(rule.Versions, billing.Version{
			VersionNo:     vr.VersionNo,
			EffectiveFrom: vr.EffectiveFrom,
			EffectiveTo:   vr.EffectiveTo,
			Priority:      vr.Priority,
			Segments:      segments,
		})
	}
	return rule, nil
}

// Order is a decoded parking order.
type Order struct {
	OrderNo   string       `json:"order_no"`
	PlateNo   string       `json:"plate_no"`
	CityCode  string       `json:"city_code"`
	LotCode   string       `json:"lot_code"`
	RuleCode  string       `json:"rule_code"`
	VersionNo *int         `json:"version_no,omitempty"`
	EntryTime time.Time    `json:"entry_time"`
	ExitTime  *time.Time   `json:"exit_time,omitempty"`
	Total     money.Amount `json:"total_amount_cents"`
	Paid      money.Amount `json:"paid_amount_cents"`
	Arrears   money.Amount `json:"arrears_amount_cents"`
	Status    string       `json:"status"`
}

// CreateOrderRequest creates a parking order. OrderNo is generated when
// empty; arrears is derived, never supplied.
type CreateOrderRequest struct {
	OrderNo   string       `json:"order_no"`
	PlateNo   string       `json:"plate_no"`
	CityCode  string       `json:"city_code"`
	LotCode   string       `json:"lot_code"`
	RuleCode  string       `json:"rule_code"`
	VersionNo *int         `json:"version_no,omitempty"`
	EntryTime time.Time    `json:"entry_time"`
	ExitTime  *time.Time   `json:"exit_time,omitempty"`
	Total     money.Amount `json:"total_amount_cents"`
	Paid      money.Amount `json:"paid_amount_cents"`
	Status    string       `json:"status"`
}

// CreateOrder persists an order, deriving arrears = max(0, total - paid).
func (s *Store) CreateOrder(req CreateOrderRequest) (*Order, error) {
	orderNo := req.OrderNo
	if orderNo == "" {
		orderNo = s.node.Generate().String()
	}
	status := req.Status
	if status == "" {
		status = "UNPAID"
	}
	arrears := req.Total.Sub(req.Paid)
	if arrears.IsNegative() {
		arrears = money.Zero
	}

	record := OrderRecord{
		OrderNo:      orderNo,
		PlateNo:      req.PlateNo,
		CityCode:     req.CityCode,
		LotCode:      req.LotCode,
		RuleCode:     req.RuleCode,
		VersionNo:    req.VersionNo,
		EntryTime:    req.EntryTime,
		ExitTime:     req.ExitTime,
		TotalCents:   req.Total.Cents(),
		PaidCents:    req.Paid.Cents(),
		ArrearsCents: arrears.Cents(),
		Status:       status,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return nil, errors.Storage("create order", err)
	}

	s.log.Info("order created",
		zap.String("order_no", orderNo),
		zap.Int64("arrears_cents", arrears.Cents()))
	out := orderFromRecord(record)
	return &out, nil
}

// GetOrder loads one order by order number.
func (s *Store) GetOrder(orderNo string) (*Order, error) {
	var record OrderRecord
	res := s.db.Where("order_no = ?", orderNo).Limit(1).Find(&record)
	if res.Error != nil {
		return nil, errors.Storage("load order", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errors.NotFound("parking order", orderNo)
	}
	out := orderFromRecord(record)
	return &out, nil
}

// ListArrears lists orders with outstanding arrears, newest first,
// optionally filtered by plate number and city.
func (s *Store) ListArrears(plateNo, cityCode string) ([]Order, error) {
	query := s.db.Where("arrears_cents > 0").Order("id desc")
	if plateNo != "" {
		query = query.Where("plate_no = ?", plateNo)
	}
	if cityCode != "" {
		query = query.Where("city_code = ?", cityCode)
	}
	var records []OrderRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, errors.Storage("list arrears", err)
	}
	orders := make([]Order, 0, len(records))
	for _, record := range records {
		orders = append(orders, orderFromRecord(record))
	}
	return orders, nil
}

// SaveVerification records one consistency check outcome for audit.
func (s *Store) SaveVerification(orderNo string, result *fee.Result, verdict fee.Verdict) (string, error) {
	record := VerificationRecord{
		ID:            uuid.NewString(),
		OrderNo:       orderNo,
		RuleCode:      result.MatchedRuleCode,
		VersionNo:     result.MatchedVersionNo,
		ExpectedCents: verdict.ExpectedAmount.Cents(),
		ActualCents:   verdict.ActualAmount.Cents(),
		Result:        string(verdict.Result),
		Action:        string(verdict.Action),
	}
	if err := s.db.Create(&record).Error; err != nil {
		return "", errors.Storage("save verification", err)
	}
	return record.ID, nil
}

func orderFromRecord(record OrderRecord) Order {
	return Order{
		OrderNo:   record.OrderNo,
		PlateNo:   record.PlateNo,
		CityCode:  record.CityCode,
		LotCode:   record.LotCode,
		RuleCode:  record.RuleCode,
		VersionNo: record.VersionNo,
		EntryTime: record.EntryTime,
		ExitTime:  record.ExitTime,
		Total:     money.FromCents(record.TotalCents),
		Paid:      money.FromCents(record.PaidCents),
		Arrears:   money.FromCents(record.ArrearsCents),
		Status:    record.Status,
	}
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
