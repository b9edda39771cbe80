package domain

import (
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:domain_models?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	if (KeyValue{}).TableName() != "key_values" {
		t.Fatalf("KeyValue.TableName() = %q; want %q", (KeyValue{}).TableName(), "key_values")
	}
	if (Nomination{}).TableName() != "nominations" {
		t.Fatalf("Nomination.TableName() = %q; want %q", (Nomination{}).TableName(), "nominations")
	}
}

func TestPhaseValid(t *testing.T) {
	for _, p := range []Phase{PhaseCollecting, PhaseVoting, PhaseReady} {
		if !p.Valid() {
			t.Fatalf("expected %q to be a valid phase", p)
		}
	}
	if Phase("PUBLISHED").Valid() {
		t.Fatalf("expected unknown phase to be invalid")
	}
	if Phase("").Valid() {
		t.Fatalf("expected empty phase to be invalid")
	}
}

func TestMigrations_NominationSemantics(t *testing.T) {
	db := newDomainDB(t)

	if err := db.AutoMigrate(&KeyValue{}, &Nomination{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()

	for _, tbl := range []any{&KeyValue{}, &Nomination{}} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}
	if !m.HasIndex(&Nomination{}, "idx_nominations_epoch") {
		t.Fatalf("expected index idx_nominations_epoch on nominations")
	}

	// One row per user: re-inserting the same user id must fail, a save on
	// the same key overwrites instead.
	item := "Paprika"
	if err := db.Create(&Nomination{UserID: 7, Epoch: 1, Item: &item}).Error; err != nil {
		t.Fatalf("insert nomination: %v", err)
	}
	if err := db.Create(&Nomination{UserID: 7, Epoch: 2}).Error; err == nil {
		t.Fatalf("expected duplicate user_id insert to fail")
	}
	if err := db.Save(&Nomination{UserID: 7, Epoch: 2}).Error; err != nil {
		t.Fatalf("save retargeted nomination: %v", err)
	}
	var got Nomination
	if err := db.First(&got, "user_id = ?", 7).Error; err != nil {
		t.Fatalf("load nomination: %v", err)
	}
	if got.Epoch != 2 || got.Item != nil {
		t.Fatalf("expected retargeted empty slot, got %+v", got)
	}

	// Empty slots are representable: Item and Note stay NULL.
	if err := db.Create(&Nomination{UserID: 8, Epoch: 2}).Error; err != nil {
		t.Fatalf("insert empty slot: %v", err)
	}
	var withItem int64
	if err := db.Model(&Nomination{}).Where("epoch = ? AND item IS NOT NULL", 2).Count(&withItem).Error; err != nil {
		t.Fatalf("count filled slots: %v", err)
	}
	if withItem != 0 {
		t.Fatalf("expected no filled slots in epoch 2, got %d", withItem)
	}
}
