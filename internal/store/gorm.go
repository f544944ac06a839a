package store

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/markjakearzadon/givepay-gobackend/internal/models"
)

// donationRow is the relational shape of models.Donation.
type donationRow struct {
	ID         string          `gorm:"primaryKey;size:36"`
	Reference  string          `gorm:"size:128;not null;uniqueIndex:uniq_donations_reference"`
	DonorName  string          `gorm:"size:255"`
	DonorEmail string          `gorm:"size:255"`
	Amount     decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Currency   string          `gorm:"size:8"`
	Status     string          `gorm:"size:20;not null;index:idx_donations_status_created,priority:1"`
	CreatedAt  time.Time       `gorm:"not null;index;index:idx_donations_status_created,priority:2"`
	UpdatedAt  time.Time
	PaidAt     *time.Time
}

func (donationRow) TableName() string { return "donations" }

func rowFromModel(d *models.Donation) donationRow {
	return donationRow{
		ID:         d.ID,
		Reference:  d.Reference,
		DonorName:  d.DonorName,
		DonorEmail: d.DonorEmail,
		Amount:     d.Amount,
		Currency:   d.Currency,
		Status:     string(d.Status),
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
		PaidAt:     d.PaidAt,
	}
}

func (r donationRow) toModel() models.Donation {
	return models.Donation{
		ID:         r.ID,
		Reference:  r.Reference,
		DonorName:  r.DonorName,
		DonorEmail: r.DonorEmail,
		Amount:     r.Amount,
		Currency:   r.Currency,
		Status:     models.Status(r.Status),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
		PaidAt:     r.PaidAt,
	}
}

// GormStore persists donations in PostgreSQL through GORM. The handle must be
// opened with TranslateError so duplicate keys map to gorm.ErrDuplicatedKey.
type GormStore struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewGormStore(db *gorm.DB, timeout time.Duration) *GormStore {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &GormStore{db: db, timeout: timeout}
}

// Migrate creates the donations table and its unique reference index.
func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(&donationRow{})
}

func (s *GormStore) FindByReference(ctx context.Context, reference string) (*models.Donation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var row donationRow
	if err := s.db.WithContext(ctx).Where("reference = ?", reference).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		log.Printf("Failed to fetch donation %s: %v", reference, err)
		return nil, unavailable("find donation", err)
	}
	d := row.toModel()
	return &d, nil
}

func (s *GormStore) Insert(ctx context.Context, d *models.Donation) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row := rowFromModel(d)
	row.ID = uuid.NewString()
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateReference
		}
		log.Printf("Failed to save donation %s: %v", d.Reference, err)
		return unavailable("insert donation", err)
	}
	d.ID = row.ID
	return nil
}

func (s *GormStore) Update(ctx context.Context, d *models.Donation, from models.Status) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	fields := map[string]interface{}{
		"amount":     d.Amount,
		"status":     string(d.Status),
		"updated_at": d.UpdatedAt,
	}
	if d.Currency != "" {
		fields["currency"] = d.Currency
	}
	if d.PaidAt != nil {
		fields["paid_at"] = *d.PaidAt
	}

	res := s.db.WithContext(ctx).Model(&donationRow{}).
		Where("reference = ? AND status = ?", d.Reference, string(from)).
		Updates(fields)
	if res.Error != nil {
		log.Printf("Failed to update donation %s: %v", d.Reference, res.Error)
		return unavailable("update donation", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) SumAmounts(ctx context.Context, status models.Status) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	q := s.db.WithContext(ctx).Model(&donationRow{})
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	var total decimal.Decimal
	if err := q.Select("COALESCE(SUM(amount), 0)").Scan(&total).Error; err != nil {
		log.Printf("Failed to aggregate donation total: %v", err)
		return decimal.Zero, unavailable("sum donations", err)
	}
	return total, nil
}

func (s *GormStore) List(ctx context.Context) ([]models.Donation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []donationRow
	if err := s.db.WithContext(ctx).Order("created_at desc").Find(&rows).Error; err != nil {
		log.Printf("Failed to fetch donations: %v", err)
		return nil, unavailable("list donations", err)
	}
	return toModels(rows), nil
}

func (s *GormStore) ListPending(ctx context.Context, olderThan time.Time, limit int) ([]models.Donation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	q := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", string(models.StatusPending), olderThan).
		Order("created_at asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []donationRow
	if err := q.Find(&rows).Error; err != nil {
		log.Printf("Failed to fetch pending donations: %v", err)
		return nil, unavailable("list pending donations", err)
	}
	return toModels(rows), nil
}

func toModels(rows []donationRow) []models.Donation {
	out := make([]models.Donation, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out
}
