package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/visionflow_server/internal/model"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *OrderRepository) WithTx(tx *gorm.DB) *OrderRepository {
	return &OrderRepository{db: tx}
}

func (r *OrderRepository) Create(ctx context.Context, order *model.PaymentOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*model.PaymentOrder, error) {
	var order model.PaymentOrder
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetByIDForUpdate 加行锁读取订单（SQLite 忽略 FOR UPDATE，由库级写锁保证串行）
func (r *OrderRepository) GetByIDForUpdate(ctx context.Context, id int64) (*model.PaymentOrder, error) {
	var order model.PaymentOrder
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) ExistsByTransactionRef(ctx context.Context, ref string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.PaymentOrder{}).Where("transaction_ref = ?", ref).Count(&count).Error
	return count > 0, err
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]model.PaymentOrder, error) {
	var orders []model.PaymentOrder
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	return orders, err
}

// List 管理后台订单列表，status 为空时返回全部
func (r *OrderRepository) List(ctx context.Context, status string, page, pageSize int) ([]model.PaymentOrder, int64, error) {
	var orders []model.PaymentOrder
	var total int64

	query := r.db.WithContext(ctx).Model(&model.PaymentOrder{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Preload("User").
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(pageSize).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// MarkReviewed 仅当订单仍为 PENDING 时写入审核结果，返回受影响行数
func (r *OrderRepository) MarkReviewed(ctx context.Context, id int64, status, adminNote string, reviewedAt time.Time, subscriptionID *int64) (int64, error) {
	fields := map[string]interface{}{
		"status":      status,
		"admin_note":  adminNote,
		"reviewed_at": reviewedAt,
		"updated_at":  reviewedAt,
	}
	if subscriptionID != nil {
		fields["subscription_id"] = *subscriptionID
	}

	result := r.db.WithContext(ctx).Model(&model.PaymentOrder{}).
		Where("id = ? AND status = ?", id, model.OrderStatusPending).
		Updates(fields)
	return result.RowsAffected, result.Error
}

func (r *OrderRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.PaymentOrder{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

func (r *OrderRepository) SumApprovedAmount(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Model(&model.PaymentOrder{}).
		Where("status = ?", model.OrderStatusApproved).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}
