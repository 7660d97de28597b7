package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietanh2810/checkin-api/internal/repository/dao"
)

func TestOpenPostgresWithURL_SQLiteScheme(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkin.db")

	db, err := OpenPostgresWithURL("sqlite://" + path)
	require.NoError(t, err)

	for _, table := range []any{&dao.User{}, &dao.Event{}, &dao.Activation{}, &dao.CheckIn{}} {
		assert.True(t, db.Migrator().HasTable(table))
	}
	assert.True(t, db.Migrator().HasIndex(&dao.CheckIn{}, "idx_check_ins_user_activation"))
}
