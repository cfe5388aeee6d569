package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SchemaMigration 记录一条已应用的迁移
type SchemaMigration struct {
	Version   int    `gorm:"primaryKey;autoIncrement:false"`
	Name      string `gorm:"size:64;not null"`
	AppliedAt time.Time
}

// TableName 指定迁移记录表名
func (SchemaMigration) TableName() string {
	return "schema_migrations"
}

// migration 表示一次结构迁移
type migration struct {
	Version int
	Name    string
	Apply   func(tx *gorm.DB) error
}

// Manager 负责按版本号顺序应用所有尚未应用的迁移
type Manager struct {
	db         *gorm.DB
	log        *zap.Logger
	migrations []migration
}

// NewManager 创建一个包含全部已注册迁移的Manager
func NewManager(db *gorm.DB, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		db:  db,
		log: log,
		migrations: []migration{
			{Version: 1, Name: "initial_schema", Apply: migrateInitialSchema},
			{Version: 2, Name: "legacy_likes_column", Apply: migrateLegacyLikes},
			{Version: 3, Name: "legacy_downloads_column", Apply: migrateLegacyDownloads},
			{Version: 4, Name: "counter_days_id_index", Apply: migrateCounterDaysIndex},
		},
	}
}

// Ensure 幂等地把数据库结构升级到最新版本，可以重复调用
func (m *Manager) Ensure(ctx context.Context) error {
	db := m.db.WithContext(ctx)

	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return fmt.Errorf("无法创建schema_migrations表: %w", err)
	}

	var applied []int
	if err := db.Model(&SchemaMigration{}).Pluck("version", &applied).Error; err != nil {
		return fmt.Errorf("无法读取已应用的迁移: %w", err)
	}
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	for _, mg := range m.migrations {
		if done[mg.Version] {
			continue
		}
		if err := m.apply(ctx, mg); err != nil {
			return fmt.Errorf("应用迁移 %d (%s) 失败: %w", mg.Version, mg.Name, err)
		}
		m.log.Info("数据库迁移已应用", zap.Int("version", mg.Version), zap.String("name", mg.Name))
	}
	return nil
}

// Version 返回当前已应用的最高迁移版本，未迁移时为0
func (m *Manager) Version(ctx context.Context) (int, error) {
	var version sql.NullInt64
	row := m.db.WithContext(ctx).Model(&SchemaMigration{}).Select("MAX(version)").Row()
	if err := row.Scan(&version); err != nil {
		return 0, err
	}
	return int(version.Int64), nil
}

// Latest 返回已注册迁移中的最高版本号
func (m *Manager) Latest() int {
	return m.migrations[len(m.migrations)-1].Version
}

// apply 在事务中执行迁移并记录版本
func (m *Manager) apply(ctx context.Context, mg migration) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mg.Apply(tx); err != nil {
			return err
		}
		// 多个实例同时启动时，后到者直接忽略重复记录
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&SchemaMigration{
			Version:   mg.Version,
			Name:      mg.Name,
			AppliedAt: time.Now().UTC(),
		}).Error
	})
}

func migrateInitialSchema(tx *gorm.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS counters (
			id VARCHAR(80) PRIMARY KEY,
			views BIGINT NOT NULL DEFAULT 0,
			downloads BIGINT NOT NULL DEFAULT 0,
			likes BIGINT NOT NULL DEFAULT 0,
			updated_at BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS counter_days (
			day VARCHAR(10) NOT NULL,
			id VARCHAR(80) NOT NULL,
			views BIGINT NOT NULL DEFAULT 0,
			downloads BIGINT NOT NULL DEFAULT 0,
			likes BIGINT NOT NULL DEFAULT 0,
			updated_at BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (day, id)
		)`,
		`CREATE TABLE IF NOT EXISTS ratings4 (
			id VARCHAR(80) PRIMARY KEY,
			sum BIGINT NOT NULL DEFAULT 0,
			count BIGINT NOT NULL DEFAULT 0,
			updated_at BIGINT NOT NULL DEFAULT 0
		)`,
	}
	for _, stmt := range statements {
		if err := tx.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// migrateLegacyLikes 为早期没有likes列的counters表补上该列
func migrateLegacyLikes(tx *gorm.DB) error {
	if tx.Migrator().HasColumn("counters", "likes") {
		return nil
	}
	return addColumnIgnoringDuplicate(tx, "counters", "likes")
}

// migrateLegacyDownloads 把早期部署中的mega列改名为downloads
func migrateLegacyDownloads(tx *gorm.DB) error {
	for _, table := range []string{"counters", "counter_days"} {
		mg := tx.Migrator()
		if mg.HasColumn(table, "downloads") {
			continue
		}
		if mg.HasColumn(table, "mega") {
			if err := tx.Exec(fmt.Sprintf("ALTER TABLE %s RENAME COLUMN mega TO downloads", table)).Error; err != nil {
				return err
			}
			continue
		}
		if err := addColumnIgnoringDuplicate(tx, table, "downloads"); err != nil {
			return err
		}
	}
	return nil
}

func migrateCounterDaysIndex(tx *gorm.DB) error {
	return tx.Exec("CREATE INDEX IF NOT EXISTS idx_counter_days_id_day ON counter_days (id, day)").Error
}

func addColumnIgnoringDuplicate(tx *gorm.DB, table, column string) error {
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s BIGINT NOT NULL DEFAULT 0", table, column)
	if err := tx.Exec(stmt).Error; err != nil && !isDuplicateColumn(err) {
		return err
	}
	return nil
}

func isDuplicateColumn(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate column") || strings.Contains(msg, "already exists")
}
