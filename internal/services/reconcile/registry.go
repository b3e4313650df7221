package reconcile

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"vista-reconciliation-backend/internal/models"
	"vista-reconciliation-backend/internal/repository"
)

// EntityTypes lists the supported types in dashboard order.
var EntityTypes = []string{
	models.EntityContracts,
	models.EntityWorkOrders,
	models.EntityEmployees,
	models.EntityCustomers,
	models.EntityVendors,
}

// buildRegistry wires the descriptor for every entity type. This is the one
// place where per-type reconciliation behavior lives.
func buildRegistry() map[string]*Descriptor {
	return map[string]*Descriptor{
		models.EntityContracts:  contractDescriptor(),
		models.EntityWorkOrders: workOrderDescriptor(),
		models.EntityEmployees:  employeeDescriptor(),
		models.EntityCustomers:  customerDescriptor(),
		models.EntityVendors:    vendorDescriptor(),
	}
}

func assignIfNil(target **uuid.UUID, id uuid.UUID) {
	if *target == nil {
		v := id
		*target = &v
	}
}

func contractDescriptor() *Descriptor {
	d := bindStore[models.VistaContract](&Descriptor{
		EntityType:        models.EntityContracts,
		keyField:          "contract_number",
		keyColumn:         "contract_number",
		primaryLinkColumn: "project_id",
		searchColumns:     []string{"contract_number", "description", "customer_name"},
	})

	d.newRecord = func(tenant uuid.UUID, key string) models.ExternalRecord {
		return &models.VistaContract{
			ID:             uuid.New(),
			TenantID:       tenant,
			ContractNumber: key,
			LinkState:      models.LinkState{LinkStatus: models.StatusUnmatched},
		}
	}

	d.applyRow = func(rec models.ExternalRecord, row Row) {
		c := rec.(*models.VistaContract)
		c.Description = row.Str("description")
		c.Amount = row.Decimal("amount")
		c.Status = row.Str("status")
		c.DepartmentCode = row.Str("department_code")
		c.EmployeeNumber = row.Str("employee_number")
		c.CustomerName = row.Str("customer_name")
		c.StartDate = row.TimePtr("start_date")
		c.EndDate = row.TimePtr("end_date")
	}

	d.signals = []Signal{
		{
			Name: "employee_number",
			Resolve: func(canon *repository.CanonicalRepo, rec models.ExternalRecord) (uuid.UUID, bool, error) {
				c := rec.(*models.VistaContract)
				return resolveEmployeeNumber(canon, c.TenantID, c.EmployeeNumber)
			},
			Assign: func(rec models.ExternalRecord, id uuid.UUID) {
				assignIfNil(&rec.(*models.VistaContract).EmployeeID, id)
			},
		},
		{
			Name: "department_code",
			Resolve: func(canon *repository.CanonicalRepo, rec models.ExternalRecord) (uuid.UUID, bool, error) {
				c := rec.(*models.VistaContract)
				return resolveDepartmentNumber(canon, c.TenantID, c.DepartmentCode)
			},
			Assign: func(rec models.ExternalRecord, id uuid.UUID) {
				assignIfNil(&rec.(*models.VistaContract).DepartmentID, id)
			},
		},
		{
			Name: "customer_name",
			Resolve: func(canon *repository.CanonicalRepo, rec models.ExternalRecord) (uuid.UUID, bool, error) {
				c := rec.(*models.VistaContract)
				return resolveCustomerName(canon, c.TenantID, c.CustomerName)
			},
			Assign: func(rec models.ExternalRecord, id uuid.UUID) {
				assignIfNil(&rec.(*models.VistaContract).CustomerID, id)
			},
		},
		{
			Name: "contract_number",
			Resolve: func(canon *repository.CanonicalRepo, rec models.ExternalRecord) (uuid.UUID, bool, error) {
				c := rec.(*models.VistaContract)
				return resolveProjectNumber(canon, c.TenantID, c.ContractNumber)
			},
			Assign: func(rec models.ExternalRecord, id uuid.UUID) {
				assignIfNil(&rec.(*models.VistaContract).ProjectID, id)
			},
		},
	}

	d.profile = func(rec models.ExternalRecord) dupProfile {
		c := rec.(*models.VistaContract)
		return dupProfile{Names: []NamedValue{{Field: "description", Value: c.Description}}}
	}

	d.canonicalModel = func() interface{} { return &models.Project{} }
	d.candidates = projectCandidates(d)

	d.promote = func(canon *repository.CanonicalRepo, rec models.ExternalRecord, actor string) (uuid.UUID, string, error) {
		c := rec.(*models.VistaContract)
		return promoteToProject(canon, c.TenantID, c.ContractNumber, c.Label(), c.CustomerName, c.EmployeeNumber)
	}

	return d
}

func workOrderDescriptor() *Descriptor {
	d := bindStore[models.VistaWorkOrder](&Descriptor{
		EntityType:        models.EntityWorkOrders,
		keyField:          "work_order_number",
		keyColumn:         "work_order_number",
		primaryLinkColumn: "project_id",
		searchColumns:     []string{"work_order_number", "description", "customer_name"},
	})

	d.newRecord = func(tenant uuid.UUID, key string) models.ExternalRecord {
		return &models.VistaWorkOrder{
			ID:              uuid.New(),
			TenantID:        tenant,
			WorkOrderNumber: key,
			LinkState:       models.LinkState{LinkStatus: models.StatusUnmatched},
		}
	}

	d.applyRow = func(rec models.ExternalRecord, row Row) {
		w := rec.(*models.VistaWorkOrder)
		w.Description = row.Str("description")
		w.Amount = row.Decimal("amount")
		w.Status = row.Str("status")
		w.DepartmentCode = row.Str("department_code")
		w.EmployeeNumber = row.Str("employee_number")
		w.CustomerName = row.Str("customer_name")
		w.ScheduledDate = row.TimePtr("scheduled_date")
	}

	d.signals = []Signal{
		{
			Name: "employee_number",
			Resolve: func(canon *repository.CanonicalRepo, rec models.ExternalRecord) (uuid.UUID, bool, error) {
				w := rec.(*models.VistaWorkOrder)
				return resolveEmployeeNumber(canon, w.TenantID, w.EmployeeNumber)
			},
			Assign: func(rec models.ExternalRecord, id uuid.UUID) {
				assignIfNil(&rec.(*models.VistaWorkOrder).EmployeeID, id)
			},
		},
		{
			Name: "department_code",
			Resolve: func(canon *repository.CanonicalRepo, rec models.ExternalRecord) (uuid.UUID, bool, error) {
				w := rec.(*models.VistaWorkOrder)
				return resolveDepartmentNumber(canon, w.TenantID, w.DepartmentCode)
			},
			Assign: func(rec models.ExternalRecord, id uuid.UUID) {
				assignIfNil(&rec.(*models.VistaWorkOrder).DepartmentID, id)
			},
		},
		{
			Name: "customer_name",
			Resolve: func(canon *repository.CanonicalRepo, rec models.ExternalRecord) (uuid.UUID, bool, error) {
				w := rec.(*models.VistaWorkOrder)
				return resolveCustomerName(canon, w.TenantID, w.CustomerName)
			},
			Assign: func(rec models.ExternalRecord, id uuid.UUID) {
				assignIfNil(&rec.(*models.VistaWorkOrder).CustomerID, id)
			},
		},
		{
			Name: "work_order_number",
			Resolve: func(canon *repository.CanonicalRepo, rec models.ExternalRecord) (uuid.UUID, bool, error) {
				w := rec.(*models.VistaWorkOrder)
				return resolveProjectNumber(canon, w.TenantID, w.WorkOrderNumber)
			},
			Assign: func(rec models.ExternalRecord, id uuid.UUID) {
				assignIfNil(&rec.(*models.VistaWorkOrder).ProjectID, id)
			},
		},
	}

	d.profile = func(rec models.ExternalRecord) dupProfile {
		w := rec.(*models.VistaWorkOrder)
		return dupProfile{Names: []NamedValue{{Field: "description", Value: w.Description}}}
	}

	d.canonicalModel = func() interface{} { return &models.Project{} }
	d.candidates = projectCandidates(d)

	d.promote = func(canon *repository.CanonicalRepo, rec models.ExternalRecord, actor string) (uuid.UUID, string, error) {
		w := rec.(*models.VistaWorkOrder)
		return promoteToProject(canon, w.TenantID, w.WorkOrderNumber, w.Label(), w.CustomerName, w.EmployeeNumber)
	}

	return d
}

func employeeDescriptor() *Descriptor {
	d := bindStore[models.VistaEmployee](&Descriptor{
		EntityType:        models.EntityEmployees,
		keyField:          "employee_number",
		keyColumn:         "employee_number",
		primaryLinkColumn: "employee_id",
		searchColumns:     []string{"employee_number", "first_name", "last_name", "email"},
	})

	d.newRecord = func(tenant uuid.UUID, key string) models.ExternalRecord {
		return &models.VistaEmployee{
			ID:             uuid.New(),
			TenantID:       tenant,
			EmployeeNumber: key,
			LinkState:      models.LinkState{LinkStatus: models.StatusUnmatched},
		}
	}

	d.applyRow = func(rec models.ExternalRecord, row Row) {
		e := rec.(*models.VistaEmployee)
		e.FirstName = row.Str("first_name")
		e.LastName = row.Str("last_name")
		e.Email = row.Str("email")
		e.Phone = row.Str("phone")
		e.Status = row.Str("status")
	}

	d.signals = []Signal{
		{
			Name: "employee_number",
			Resolve: func(canon *repository.CanonicalRepo, rec models.ExternalRecord) (uuid.UUID, bool, error) {
				e := rec.(*models.VistaEmployee)
				return resolveEmployeeNumber(canon, e.TenantID, e.EmployeeNumber)
			},
			Assign: func(rec models.ExternalRecord, id uuid.UUID) {
				assignIfNil(&rec.(*models.VistaEmployee).EmployeeID, id)
			},
		},
		{
			Name: "email",
			Resolve: func(canon *repository.CanonicalRepo, rec models.ExternalRecord) (uuid.UUID, bool, error) {
				e := rec.(*models.VistaEmployee)
				if e.Email == "" {
					return uuid.Nil, false, nil
				}
				emp, err := canon.EmployeeByEmail(e.TenantID, e.Email)
				if err != nil || emp == nil {
					return uuid.Nil, false, err
				}
				return emp.ID, true, nil
			},
			Assign: func(rec models.ExternalRecord, id uuid.UUID) {
				assignIfNil(&rec.(*models.VistaEmployee).EmployeeID, id)
			},
		},
	}

	d.profile = func(rec models.ExternalRecord) dupProfile {
		e := rec.(*models.VistaEmployee)
		return dupProfile{
			Names:    []NamedValue{{Field: "name", Value: e.FullName()}},
			LastName: e.LastName,
		}
	}

	d.canonicalModel = func() interface{} { return &models.Employee{} }
	d.candidates = func(db *gorm.DB, tenant uuid.UUID) ([]Candidate, error) {
		var employees []models.Employee
		err := db.Where("tenant_id = ? AND id NOT IN (?)", tenant, d.claimedIDs(db, tenant)).
			Find(&employees).Error
		if err != nil {
			return nil, err
		}
		out := make([]Candidate, len(employees))
		for i, e := range employees {
			out[i] = Candidate{ID: e.ID, Number: e.EmployeeNumber, Name: e.FullName(), LastName: e.LastName}
		}
		return out, nil
	}

	d.promote = func(canon *repository.CanonicalRepo, rec models.ExternalRecord, actor string) (uuid.UUID, string, error) {
		e := rec.(*models.VistaEmployee)
		emp := &models.Employee{
			ID:             uuid.New(),
			TenantID:       e.TenantID,
			EmployeeNumber: e.EmployeeNumber,
			FirstName:      e.FirstName,
			LastName:       e.LastName,
			Email:          e.Email,
		}
		if err := canon.Create(emp); err != nil {
			return uuid.Nil, "", err
		}
		return emp.ID, emp.FullName(), nil
	}

	return d
}

func customerDescriptor() *Descriptor {
	d := bindStore[models.VistaCustomer](&Descriptor{
		EntityType:        models.EntityCustomers,
		keyField:          "customer_number",
		keyColumn:         "customer_number",
		primaryLinkColumn: "customer_id",
		searchColumns:     []string{"customer_number", "owner_name", "facility_name"},
	})

	d.newRecord = func(tenant uuid.UUID, key string) models.ExternalRecord {
		return &models.VistaCustomer{
			ID:             uuid.New(),
			TenantID:       tenant,
			CustomerNumber: key,
			LinkState:      models.LinkState{LinkStatus: models.StatusUnmatched},
		}
	}

	d.applyRow = func(rec models.ExternalRecord, row Row) {
		c := rec.(*models.VistaCustomer)
		c.OwnerName = row.Str("owner_name")
		c.FacilityName = row.Str("facility_name")
		c.City = row.Str("city")
		c.StateCode = row.Str("state")
		c.Phone = row.Str("phone")
	}

	d.signals = []Signal{
		{
			Name: "customer_number",
			Resolve: func(canon *repository.CanonicalRepo, rec models.ExternalRecord) (uuid.UUID, bool, error) {
				c := rec.(*models.VistaCustomer)
				if c.CustomerNumber == "" {
					return uuid.Nil, false, nil
				}
				cust, err := canon.CustomerByNumber(c.TenantID, c.CustomerNumber)
				if err != nil || cust == nil {
					return uuid.Nil, false, err
				}
				return cust.ID, true, nil
			},
			Assign: func(rec models.ExternalRecord, id uuid.UUID) {
				assignIfNil(&rec.(*models.VistaCustomer).CustomerID, id)
			},
		},
		{
			Name: "owner_name",
			Resolve: func(canon *repository.CanonicalRepo, rec models.ExternalRecord) (uuid.UUID, bool, error) {
				c := rec.(*models.VistaCustomer)
				return resolveCustomerName(canon, c.TenantID, c.OwnerName)
			},
			Assign: func(rec models.ExternalRecord, id uuid.UUID) {
				assignIfNil(&rec.(*models.VistaCustomer).CustomerID, id)
			},
		},
	}

	d.profile = func(rec models.ExternalRecord) dupProfile {
		c := rec.(*models.VistaCustomer)
		return dupProfile{
			Names: []NamedValue{
				{Field: "owner_name", Value: c.OwnerName},
				{Field: "facility_name", Value: c.FacilityName},
			},
			City: c.City,
		}
	}

	d.canonicalModel = func() interface{} { return &models.Customer{} }
	d.candidates = func(db *gorm.DB, tenant uuid.UUID) ([]Candidate, error) {
		var customers []models.Customer
		err := db.Where("tenant_id = ? AND id NOT IN (?)", tenant, d.claimedIDs(db, tenant)).
			Find(&customers).Error
		if err != nil {
			return nil, err
		}
		out := make([]Candidate, len(customers))
		for i, c := range customers {
			out[i] = Candidate{ID: c.ID, Number: c.CustomerNumber, Name: c.Name, City: c.City}
		}
		return out, nil
	}

	d.promote = func(canon *repository.CanonicalRepo, rec models.ExternalRecord, actor string) (uuid.UUID, string, error) {
		c := rec.(*models.VistaCustomer)
		name := c.OwnerName
		if name == "" {
			name = c.FacilityName
		}
		cust := &models.Customer{
			ID:             uuid.New(),
			TenantID:       c.TenantID,
			CustomerNumber: c.CustomerNumber,
			Name:           name,
			City:           c.City,
			State:          c.StateCode,
		}
		if err := canon.Create(cust); err != nil {
			return uuid.Nil, "", err
		}
		return cust.ID, cust.Name, nil
	}

	return d
}

func vendorDescriptor() *Descriptor {
	d := bindStore[models.VistaVendor](&Descriptor{
		EntityType:        models.EntityVendors,
		keyField:          "vendor_number",
		keyColumn:         "vendor_number",
		primaryLinkColumn: "vendor_id",
		searchColumns:     []string{"vendor_number", "name"},
	})

	d.newRecord = func(tenant uuid.UUID, key string) models.ExternalRecord {
		return &models.VistaVendor{
			ID:           uuid.New(),
			TenantID:     tenant,
			VendorNumber: key,
			LinkState:    models.LinkState{LinkStatus: models.StatusUnmatched},
		}
	}

	d.applyRow = func(rec models.ExternalRecord, row Row) {
		v := rec.(*models.VistaVendor)
		v.Name = row.Str("name")
		v.City = row.Str("city")
		v.StateCode = row.Str("state")
		v.Phone = row.Str("phone")
	}

	d.signals = []Signal{
		{
			Name: "vendor_number",
			Resolve: func(canon *repository.CanonicalRepo, rec models.ExternalRecord) (uuid.UUID, bool, error) {
				v := rec.(*models.VistaVendor)
				if v.VendorNumber == "" {
					return uuid.Nil, false, nil
				}
				vend, err := canon.VendorByNumber(v.TenantID, v.VendorNumber)
				if err != nil || vend == nil {
					return uuid.Nil, false, err
				}
				return vend.ID, true, nil
			},
			Assign: func(rec models.ExternalRecord, id uuid.UUID) {
				assignIfNil(&rec.(*models.VistaVendor).VendorID, id)
			},
		},
		{
			Name: "name",
			Resolve: func(canon *repository.CanonicalRepo, rec models.ExternalRecord) (uuid.UUID, bool, error) {
				v := rec.(*models.VistaVendor)
				if v.Name == "" {
					return uuid.Nil, false, nil
				}
				vend, err := canon.VendorByName(v.TenantID, v.Name)
				if err != nil || vend == nil {
					return uuid.Nil, false, err
				}
				return vend.ID, true, nil
			},
			Assign: func(rec models.ExternalRecord, id uuid.UUID) {
				assignIfNil(&rec.(*models.VistaVendor).VendorID, id)
			},
		},
	}

	d.profile = func(rec models.ExternalRecord) dupProfile {
		v := rec.(*models.VistaVendor)
		return dupProfile{
			Names: []NamedValue{{Field: "name", Value: v.Name}},
			City:  v.City,
		}
	}

	d.canonicalModel = func() interface{} { return &models.Vendor{} }
	d.candidates = func(db *gorm.DB, tenant uuid.UUID) ([]Candidate, error) {
		var vendors []models.Vendor
		err := db.Where("tenant_id = ? AND id NOT IN (?)", tenant, d.claimedIDs(db, tenant)).
			Find(&vendors).Error
		if err != nil {
			return nil, err
		}
		out := make([]Candidate, len(vendors))
		for i, v := range vendors {
			out[i] = Candidate{ID: v.ID, Number: v.VendorNumber, Name: v.Name, City: v.City}
		}
		return out, nil
	}

	d.promote = func(canon *repository.CanonicalRepo, rec models.ExternalRecord, actor string) (uuid.UUID, string, error) {
		v := rec.(*models.VistaVendor)
		vend := &models.Vendor{
			ID:           uuid.New(),
			TenantID:     v.TenantID,
			VendorNumber: v.VendorNumber,
			Name:         v.Name,
			City:         v.City,
			State:        v.StateCode,
		}
		if err := canon.Create(vend); err != nil {
			return uuid.Nil, "", err
		}
		return vend.ID, vend.Name, nil
	}

	return d
}

// Shared signal resolvers.

func resolveEmployeeNumber(canon *repository.CanonicalRepo, tenant uuid.UUID, number string) (uuid.UUID, bool, error) {
	if number == "" {
		return uuid.Nil, false, nil
	}
	emp, err := canon.EmployeeByNumber(tenant, number)
	if err != nil || emp == nil {
		return uuid.Nil, false, err
	}
	return emp.ID, true, nil
}

func resolveDepartmentNumber(canon *repository.CanonicalRepo, tenant uuid.UUID, number string) (uuid.UUID, bool, error) {
	if number == "" {
		return uuid.Nil, false, nil
	}
	dept, err := canon.DepartmentByNumber(tenant, number)
	if err != nil || dept == nil {
		return uuid.Nil, false, err
	}
	return dept.ID, true, nil
}

func resolveCustomerName(canon *repository.CanonicalRepo, tenant uuid.UUID, name string) (uuid.UUID, bool, error) {
	if name == "" {
		return uuid.Nil, false, nil
	}
	cust, err := canon.CustomerByName(tenant, name)
	if err != nil || cust == nil {
		return uuid.Nil, false, err
	}
	return cust.ID, true, nil
}

func resolveProjectNumber(canon *repository.CanonicalRepo, tenant uuid.UUID, number string) (uuid.UUID, bool, error) {
	if number == "" {
		return uuid.Nil, false, nil
	}
	proj, err := canon.ProjectByNumber(tenant, number)
	if err != nil || proj == nil {
		return uuid.Nil, false, err
	}
	return proj.ID, true, nil
}

func projectCandidates(d *Descriptor) func(db *gorm.DB, tenant uuid.UUID) ([]Candidate, error) {
	return func(db *gorm.DB, tenant uuid.UUID) ([]Candidate, error) {
		var projects []models.Project
		err := db.Where("tenant_id = ? AND id NOT IN (?)", tenant, d.claimedIDs(db, tenant)).
			Find(&projects).Error
		if err != nil {
			return nil, err
		}
		out := make([]Candidate, len(projects))
		for i, p := range projects {
			out[i] = Candidate{ID: p.ID, Number: p.ProjectNumber, Name: p.Name}
		}
		return out, nil
	}
}

// promoteToProject synthesizes a canonical project from a contract or work
// order: named after the description, client copied from the extract's
// customer name, manager resolved through the employee number when possible.
func promoteToProject(canon *repository.CanonicalRepo, tenant uuid.UUID, number, name, clientName, employeeNumber string) (uuid.UUID, string, error) {
	proj := &models.Project{
		ID:            uuid.New(),
		TenantID:      tenant,
		ProjectNumber: number,
		Name:          name,
		ClientName:    clientName,
	}
	if employeeNumber != "" {
		mgr, err := canon.EmployeeByNumber(tenant, employeeNumber)
		if err != nil {
			return uuid.Nil, "", err
		}
		if mgr != nil {
			proj.ManagerID = &mgr.ID
		}
	}
	if err := canon.Create(proj); err != nil {
		return uuid.Nil, "", err
	}
	return proj.ID, proj.Name, nil
}
