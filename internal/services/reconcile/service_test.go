package reconcile

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vista-reconciliation-backend/internal/config"
	"vista-reconciliation-backend/internal/models"
	"vista-reconciliation-backend/internal/repository"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	// A named in-memory database keeps every pooled connection on the same
	// store for the duration of one test.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := db.AutoMigrate(
		&models.VistaContract{},
		&models.VistaWorkOrder{},
		&models.VistaEmployee{},
		&models.VistaCustomer{},
		&models.VistaVendor{},
		&models.Project{},
		&models.Employee{},
		&models.Customer{},
		&models.Vendor{},
		&models.Department{},
		&models.ImportBatch{},
		&models.LinkAuditLog{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	svc := NewService(db,
		repository.NewCanonicalRepo(db),
		repository.NewImportBatchRepo(db),
		config.MatchTuning{MinSimilarity: 0.5, SecondaryBoost: 0.1, StrongFieldFloor: 0.7, MaxCandidates: 5},
	)
	return svc, db
}

func mustImport(t *testing.T, svc *Service, entityType string, tenant uuid.UUID, rows []Row) *models.ImportBatch {
	t.Helper()
	batch, err := svc.Import(entityType, tenant, rows, ImportMeta{Filename: "extract.json", ImportedBy: "importer"})
	if err != nil {
		t.Fatalf("import %s: %v", entityType, err)
	}
	return batch
}

func contractByNumber(t *testing.T, db *gorm.DB, tenant uuid.UUID, number string) *models.VistaContract {
	t.Helper()
	var c models.VistaContract
	if err := db.Where("tenant_id = ? AND contract_number = ?", tenant, number).First(&c).Error; err != nil {
		t.Fatalf("load contract %s: %v", number, err)
	}
	return &c
}

func TestImportCreatesUnmatchedRecords(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()

	batch := mustImport(t, svc, models.EntityContracts, tenant, []Row{
		{"contract_number": "C-100", "description": "Water treatment upgrade", "amount": "125000.50", "customer_name": "Acme Corporation"},
		{"contract_number": "C-101", "description": "Roof replacement", "amount": 4000.0},
	})

	if batch.TotalRows != 2 || batch.NewRows != 2 || batch.UpdatedRows != 0 || batch.SkippedRows != 0 {
		t.Fatalf("unexpected counters: %+v", batch)
	}
	if batch.Status != models.BatchCompleted || batch.CompletedAt == nil {
		t.Fatalf("batch not completed: %+v", batch)
	}

	c := contractByNumber(t, db, tenant, "C-100")
	if c.LinkStatus != models.StatusUnmatched {
		t.Errorf("link status = %q, want unmatched", c.LinkStatus)
	}
	if c.LinkConfidence != nil || c.ProjectID != nil || c.EmployeeID != nil {
		t.Error("new record must have null confidence and link fields")
	}
	if c.Amount.StringFixed(2) != "125000.50" {
		t.Errorf("amount = %s", c.Amount)
	}
	if c.ImportBatchID != batch.ID {
		t.Error("record not stamped with batch id")
	}
}

func TestImportSkipsRowsMissingNaturalKey(t *testing.T) {
	svc, _ := newTestService(t)
	tenant := uuid.New()

	batch := mustImport(t, svc, models.EntityContracts, tenant, []Row{
		{"description": "no number"},
		{"contract_number": "C-200", "description": "valid"},
	})

	if batch.SkippedRows != 1 || batch.NewRows != 1 || batch.TotalRows != 2 {
		t.Fatalf("unexpected counters: %+v", batch)
	}
}

func TestReimportPreservesLinkState(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()

	proj := models.Project{ID: uuid.New(), TenantID: tenant, ProjectNumber: "P-1", Name: "Plant expansion"}
	if err := db.Create(&proj).Error; err != nil {
		t.Fatal(err)
	}

	mustImport(t, svc, models.EntityContracts, tenant, []Row{
		{"contract_number": "C-300", "description": "original description"},
	})
	before := contractByNumber(t, db, tenant, "C-300")

	if _, err := svc.Link(models.EntityContracts, tenant, before.ID, proj.ID, "alice"); err != nil {
		t.Fatalf("link: %v", err)
	}

	batch := mustImport(t, svc, models.EntityContracts, tenant, []Row{
		{"contract_number": "C-300", "description": "changed description"},
	})
	if batch.UpdatedRows != 1 || batch.NewRows != 0 {
		t.Fatalf("unexpected counters: %+v", batch)
	}

	after := contractByNumber(t, db, tenant, "C-300")
	if after.Description != "changed description" {
		t.Errorf("description not refreshed: %q", after.Description)
	}
	if after.LinkStatus != models.StatusManualMatched {
		t.Errorf("re-import changed link status to %q", after.LinkStatus)
	}
	if after.ProjectID == nil || *after.ProjectID != proj.ID {
		t.Error("re-import severed the project link")
	}
	if after.LinkedBy == nil || *after.LinkedBy != "alice" {
		t.Error("re-import lost link attribution")
	}
}

func TestAutoMatchSingleEmployeeSignal(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()

	emp := models.Employee{ID: uuid.New(), TenantID: tenant, EmployeeNumber: "42", FirstName: "Dana", LastName: "Reyes"}
	if err := db.Create(&emp).Error; err != nil {
		t.Fatal(err)
	}

	batch := mustImport(t, svc, models.EntityContracts, tenant, []Row{
		{"contract_number": "C-100", "description": "Pipeline survey", "employee_number": "42"},
	})

	summary, err := svc.AutoMatch(models.EntityContracts, tenant)
	if err != nil {
		t.Fatalf("auto-match: %v", err)
	}
	if summary.Matched != 1 || summary.Total != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	reloaded, err := svc.GetBatch(tenant, batch.ID)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if reloaded.AutoMatched != 1 {
		t.Errorf("batch auto-matched counter = %d, want 1", reloaded.AutoMatched)
	}

	c := contractByNumber(t, db, tenant, "C-100")
	if c.LinkStatus != models.StatusAutoMatched {
		t.Fatalf("status = %q, want auto_matched", c.LinkStatus)
	}
	if c.EmployeeID == nil || *c.EmployeeID != emp.ID {
		t.Error("employee link not set")
	}
	if c.LinkConfidence == nil || *c.LinkConfidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", c.LinkConfidence)
	}
	if c.ProjectID != nil || c.CustomerID != nil || c.DepartmentID != nil {
		t.Error("unresolved signals must leave their link fields null")
	}
	if c.LinkedAt == nil {
		t.Error("linked timestamp not stamped")
	}
}

func TestAutoMatchLeavesUnresolvedRowsUntouched(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()

	mustImport(t, svc, models.EntityContracts, tenant, []Row{
		{"contract_number": "C-900", "description": "nothing resolvable"},
	})

	summary, err := svc.AutoMatch(models.EntityContracts, tenant)
	if err != nil {
		t.Fatalf("auto-match: %v", err)
	}
	if summary.Matched != 0 || summary.Total != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	c := contractByNumber(t, db, tenant, "C-900")
	if c.LinkStatus != models.StatusUnmatched || c.LinkConfidence != nil {
		t.Errorf("unresolved row mutated: status=%q confidence=%v", c.LinkStatus, c.LinkConfidence)
	}
}

func TestAutoMatchSkipsIgnoredRecords(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()

	emp := models.Employee{ID: uuid.New(), TenantID: tenant, EmployeeNumber: "7"}
	if err := db.Create(&emp).Error; err != nil {
		t.Fatal(err)
	}

	mustImport(t, svc, models.EntityContracts, tenant, []Row{
		{"contract_number": "C-VOID", "description": "voided", "employee_number": "7"},
	})
	rec := contractByNumber(t, db, tenant, "C-VOID")
	if _, err := svc.Ignore(models.EntityContracts, tenant, rec.ID, "alice"); err != nil {
		t.Fatalf("ignore: %v", err)
	}

	summary, err := svc.AutoMatch(models.EntityContracts, tenant)
	if err != nil {
		t.Fatalf("auto-match: %v", err)
	}
	if summary.Total != 0 || summary.Matched != 0 {
		t.Fatalf("ignored record entered the pass: %+v", summary)
	}

	c := contractByNumber(t, db, tenant, "C-VOID")
	if c.LinkStatus != models.StatusIgnored || c.EmployeeID != nil {
		t.Errorf("ignored record mutated: %+v", c.LinkState)
	}
}

func TestAutoMatchRespectsExclusivity(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()

	canonical := models.Customer{ID: uuid.New(), TenantID: tenant, Name: "Acme Corporation"}
	if err := db.Create(&canonical).Error; err != nil {
		t.Fatal(err)
	}

	// Two extract rows naming the same canonical customer. Only one may claim
	// it; the other stays unmatched for a human to resolve.
	mustImport(t, svc, models.EntityCustomers, tenant, []Row{
		{"customer_number": "CU-1", "owner_name": "Acme Corporation"},
		{"customer_number": "CU-2", "owner_name": "Acme Corporation"},
	})

	summary, err := svc.AutoMatch(models.EntityCustomers, tenant)
	if err != nil {
		t.Fatalf("auto-match: %v", err)
	}
	if summary.Matched != 1 || summary.Total != 2 {
		t.Fatalf("summary = %+v", summary)
	}

	var claimants []models.VistaCustomer
	if err := db.Where("tenant_id = ? AND customer_id = ?", tenant, canonical.ID).Find(&claimants).Error; err != nil {
		t.Fatal(err)
	}
	if len(claimants) != 1 {
		t.Fatalf("%d records claim the same canonical customer", len(claimants))
	}
	if claimants[0].CustomerNumber != "CU-1" || claimants[0].LinkStatus != models.StatusAutoMatched {
		t.Errorf("unexpected claimant: %+v", claimants[0])
	}

	var loser models.VistaCustomer
	if err := db.Where("tenant_id = ? AND customer_number = ?", tenant, "CU-2").First(&loser).Error; err != nil {
		t.Fatal(err)
	}
	if loser.LinkStatus != models.StatusUnmatched || loser.CustomerID != nil || loser.LinkConfidence != nil {
		t.Errorf("losing record mutated: %+v", loser.LinkState)
	}
}

func TestLinkEnforcesExclusivity(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()

	proj := models.Project{ID: uuid.New(), TenantID: tenant, ProjectNumber: "P-10", Name: "Shared target"}
	if err := db.Create(&proj).Error; err != nil {
		t.Fatal(err)
	}

	mustImport(t, svc, models.EntityContracts, tenant, []Row{
		{"contract_number": "C-1", "description": "first claimant"},
		{"contract_number": "C-2", "description": "second claimant"},
	})
	c1 := contractByNumber(t, db, tenant, "C-1")
	c2 := contractByNumber(t, db, tenant, "C-2")

	if _, err := svc.Link(models.EntityContracts, tenant, c1.ID, proj.ID, "alice"); err != nil {
		t.Fatalf("first link: %v", err)
	}

	_, err := svc.Link(models.EntityContracts, tenant, c2.ID, proj.ID, "bob")
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("want ConflictError, got %v", err)
	}
	if conflict.HolderKey != "C-1" || conflict.HolderLabel != "first claimant" {
		t.Errorf("conflict does not name the holder: %+v", conflict)
	}

	// Both records unchanged.
	c1 = contractByNumber(t, db, tenant, "C-1")
	c2 = contractByNumber(t, db, tenant, "C-2")
	if c1.ProjectID == nil || *c1.ProjectID != proj.ID {
		t.Error("holder lost its link")
	}
	if c2.ProjectID != nil || c2.LinkStatus != models.StatusUnmatched {
		t.Error("conflicting link left partial state")
	}
}

func TestLinkSameTargetIsIdempotent(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()

	proj := models.Project{ID: uuid.New(), TenantID: tenant, ProjectNumber: "P-20", Name: "Idempotent"}
	if err := db.Create(&proj).Error; err != nil {
		t.Fatal(err)
	}
	mustImport(t, svc, models.EntityContracts, tenant, []Row{
		{"contract_number": "C-5", "description": "repeat link"},
	})
	c := contractByNumber(t, db, tenant, "C-5")

	if _, err := svc.Link(models.EntityContracts, tenant, c.ID, proj.ID, "alice"); err != nil {
		t.Fatalf("first link: %v", err)
	}
	rec, err := svc.Link(models.EntityContracts, tenant, c.ID, proj.ID, "alice")
	if err != nil {
		t.Fatalf("second link must not conflict with itself: %v", err)
	}
	if rec.State().LinkStatus != models.StatusManualMatched {
		t.Errorf("status = %q", rec.State().LinkStatus)
	}
}

func TestManualLinkOverridesAutoMatch(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()

	emp := models.Employee{ID: uuid.New(), TenantID: tenant, EmployeeNumber: "9"}
	proj := models.Project{ID: uuid.New(), TenantID: tenant, ProjectNumber: "P-30", Name: "Override"}
	if err := db.Create(&emp).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Create(&proj).Error; err != nil {
		t.Fatal(err)
	}

	mustImport(t, svc, models.EntityContracts, tenant, []Row{
		{"contract_number": "C-7", "description": "auto then manual", "employee_number": "9"},
	})
	if _, err := svc.AutoMatch(models.EntityContracts, tenant); err != nil {
		t.Fatal(err)
	}

	c := contractByNumber(t, db, tenant, "C-7")
	if c.LinkStatus != models.StatusAutoMatched {
		t.Fatalf("precondition failed: %q", c.LinkStatus)
	}

	if _, err := svc.Link(models.EntityContracts, tenant, c.ID, proj.ID, "alice"); err != nil {
		t.Fatalf("override link: %v", err)
	}
	c = contractByNumber(t, db, tenant, "C-7")
	if c.LinkStatus != models.StatusManualMatched {
		t.Errorf("status = %q, want manual_matched", c.LinkStatus)
	}
	if c.ProjectID == nil || *c.ProjectID != proj.ID {
		t.Error("manual target not set")
	}
	if c.EmployeeID == nil {
		t.Error("secondary auto-matched link should survive the override")
	}
}

func TestUnlinkClearsStateAndIsIdempotent(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()

	proj := models.Project{ID: uuid.New(), TenantID: tenant, ProjectNumber: "P-40", Name: "Unlink me"}
	if err := db.Create(&proj).Error; err != nil {
		t.Fatal(err)
	}
	mustImport(t, svc, models.EntityContracts, tenant, []Row{
		{"contract_number": "C-8", "description": "to unlink"},
	})
	c := contractByNumber(t, db, tenant, "C-8")
	if _, err := svc.Link(models.EntityContracts, tenant, c.ID, proj.ID, "alice"); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Unlink(models.EntityContracts, tenant, c.ID, "alice"); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	c = contractByNumber(t, db, tenant, "C-8")
	if c.LinkStatus != models.StatusUnmatched || c.ProjectID != nil || c.LinkConfidence != nil || c.LinkedBy != nil || c.LinkedAt != nil {
		t.Errorf("unlink left residue: %+v", c.LinkState)
	}

	// Second unlink is a no-op.
	rec, err := svc.Unlink(models.EntityContracts, tenant, c.ID, "alice")
	if err != nil {
		t.Fatalf("unlink twice: %v", err)
	}
	if rec.State().LinkStatus != models.StatusUnmatched {
		t.Errorf("status = %q", rec.State().LinkStatus)
	}

	stats, err := svc.Stats(tenant)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	for _, ts := range stats.Types {
		if ts.EntityType != models.EntityContracts {
			continue
		}
		if ts.Unmatched != 1 || ts.Matched != 0 {
			t.Errorf("stats after unlink: %+v", ts)
		}
	}
}

func TestLinkUnknownRecordNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	tenant := uuid.New()

	_, err := svc.Link(models.EntityContracts, tenant, uuid.New(), uuid.New(), "alice")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("want NotFoundError, got %v", err)
	}
}

func TestUnknownEntityTypeRejected(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.AutoMatch("proposals", uuid.New())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func TestPromoteWorkOrdersCreatesLinkedProjects(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()

	mgr := models.Employee{ID: uuid.New(), TenantID: tenant, EmployeeNumber: "55", FirstName: "Pat", LastName: "Lund"}
	if err := db.Create(&mgr).Error; err != nil {
		t.Fatal(err)
	}

	mustImport(t, svc, models.EntityWorkOrders, tenant, []Row{
		{"work_order_number": "WO-1", "description": "Boiler inspection", "customer_name": "Acme", "employee_number": "55"},
		{"work_order_number": "WO-2", "description": "Valve retrofit"},
		{"work_order_number": "WO-3", "description": "Annual maintenance"},
	})

	summary, err := svc.PromoteUnmatched(models.EntityWorkOrders, tenant, "alice")
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if summary.Imported != 3 || summary.Total != 3 || len(summary.Results) != 3 {
		t.Fatalf("summary = %+v", summary)
	}

	var projectCount int64
	if err := db.Model(&models.Project{}).Where("tenant_id = ?", tenant).Count(&projectCount).Error; err != nil {
		t.Fatal(err)
	}
	if projectCount != 3 {
		t.Fatalf("project count = %d, want 3", projectCount)
	}

	var wo models.VistaWorkOrder
	if err := db.Where("tenant_id = ? AND work_order_number = ?", tenant, "WO-1").First(&wo).Error; err != nil {
		t.Fatal(err)
	}
	if wo.LinkStatus != models.StatusManualMatched || wo.ProjectID == nil {
		t.Errorf("promoted work order not linked back: %+v", wo.LinkState)
	}
	var proj models.Project
	if err := db.Where("id = ?", wo.ProjectID).First(&proj).Error; err != nil {
		t.Fatal(err)
	}
	if proj.Name != "Boiler inspection" || proj.ClientName != "Acme" {
		t.Errorf("synthesized project fields: %+v", proj)
	}
	if proj.ManagerID == nil || *proj.ManagerID != mgr.ID {
		t.Error("manager not resolved from employee number")
	}

	stats, err := svc.Stats(tenant)
	if err != nil {
		t.Fatal(err)
	}
	for _, ts := range stats.Types {
		if ts.EntityType != models.EntityWorkOrders {
			continue
		}
		if ts.Unmatched != 0 || ts.Matched != 3 || ts.CanonicalLinked != 3 {
			t.Errorf("stats after promotion: %+v", ts)
		}
	}
}

func TestPromoteCustomerCarriesAddressFields(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()

	mustImport(t, svc, models.EntityCustomers, tenant, []Row{
		{"customer_number": "CU-9", "owner_name": "Lakeside Dairy", "city": "Madison", "state": "WI"},
	})

	summary, err := svc.PromoteUnmatched(models.EntityCustomers, tenant, "alice")
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if summary.Imported != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	var cust models.Customer
	if err := db.Where("id = ?", summary.Results[0].CanonicalID).First(&cust).Error; err != nil {
		t.Fatal(err)
	}
	if cust.Name != "Lakeside Dairy" || cust.City != "Madison" || cust.State != "WI" {
		t.Errorf("synthesized customer fields: %+v", cust)
	}

	var rec models.VistaCustomer
	if err := db.Where("tenant_id = ? AND customer_number = ?", tenant, "CU-9").First(&rec).Error; err != nil {
		t.Fatal(err)
	}
	if rec.StateCode != "WI" {
		t.Errorf("state code = %q, want WI", rec.StateCode)
	}
}

func TestStatsReflectsLatestImport(t *testing.T) {
	svc, _ := newTestService(t)
	tenant := uuid.New()

	mustImport(t, svc, models.EntityVendors, tenant, []Row{
		{"vendor_number": "V-1", "name": "Steel Supply Co"},
	})

	stats, err := svc.Stats(tenant)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, ts := range stats.Types {
		if ts.EntityType != models.EntityVendors {
			continue
		}
		found = true
		if ts.ExternalTotal != 1 || ts.Unmatched != 1 || ts.LastImportAt == nil {
			t.Errorf("vendor stats: %+v", ts)
		}
	}
	if !found {
		t.Fatal("vendor stats missing")
	}
	if len(stats.Types) != len(EntityTypes) {
		t.Errorf("stats cover %d types, want %d", len(stats.Types), len(EntityTypes))
	}
}

func TestAuditTrailWritten(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()

	proj := models.Project{ID: uuid.New(), TenantID: tenant, ProjectNumber: "P-50", Name: "Audited"}
	if err := db.Create(&proj).Error; err != nil {
		t.Fatal(err)
	}
	mustImport(t, svc, models.EntityContracts, tenant, []Row{
		{"contract_number": "C-A", "description": "audited"},
	})
	c := contractByNumber(t, db, tenant, "C-A")

	if _, err := svc.Link(models.EntityContracts, tenant, c.ID, proj.ID, "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Unlink(models.EntityContracts, tenant, c.ID, "bob"); err != nil {
		t.Fatal(err)
	}

	var entries []models.LinkAuditLog
	if err := db.Where("tenant_id = ? AND external_id = ?", tenant, c.ID).Order("created_at ASC").Find(&entries).Error; err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("audit entries = %d, want 2", len(entries))
	}
	if entries[0].Action != models.AuditActionLink || entries[0].PerformedBy != "alice" {
		t.Errorf("first entry: %+v", entries[0])
	}
	if entries[1].Action != models.AuditActionUnlink || entries[1].PerformedBy != "bob" {
		t.Errorf("second entry: %+v", entries[1])
	}
}
