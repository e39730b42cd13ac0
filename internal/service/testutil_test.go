package service

import (
	"context"
	"path/filepath"
	"testing"

	"facility-inspect/internal/config"
	"facility-inspect/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "inspect.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, NewInspectionService(db, config.BestEffort).Migrate(context.Background()))
	return db
}

func sampleInput() model.InspectionInput {
	return model.InspectionInput{
		Building:  "Swanson Hall",
		Type:      "Custodial",
		Date:      "2025-03-14",
		Inspector: "J. Doe",
		Items: []model.ItemInput{
			{Item: "Flooring (Hard Surface)", Rating: 4, Notes: "stained carpet"},
		},
	}
}
