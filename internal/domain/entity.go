package domain

// Entity describes how one resource maps onto its tenant-scoped table. The
// date and datetime sets drive value formatting in the query builder.
type Entity struct {
	Name            string
	Table           string
	PrimaryKey      string
	DateTimeColumns []string
	DateColumns     []string
}

// IsDateTime reports whether column is formatted as YYYY-MM-DD HH:MM:SS.
func (e Entity) IsDateTime(column string) bool {
	return contains(e.DateTimeColumns, column)
}

// IsDate reports whether column is formatted as YYYY-MM-DD.
func (e Entity) IsDate(column string) bool {
	return contains(e.DateColumns, column)
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

var (
	Users = Entity{Name: "user", Table: "PQ_user", PrimaryKey: "uid"}

	Leads = Entity{
		Name:            "lead",
		Table:           "PQ_leads",
		PrimaryKey:      "lid",
		DateTimeColumns: []string{"ladate"},
		DateColumns:     []string{"lstatusdate", "llastcontact", "linspection", "linspectioncomp"},
	}

	Clients = Entity{
		Name:            "client",
		Table:           "PQ_client",
		PrimaryKey:      "cid",
		DateTimeColumns: []string{"cadate", "cedate"},
		DateColumns:     []string{"cstatusdate", "clastcontact", "cinspection"},
	}

	Buildings = Entity{
		Name:            "building",
		Table:           "PQ_building",
		PrimaryKey:      "bid",
		DateTimeColumns: []string{"cadate", "cedate"},
		DateColumns:     []string{"badate", "bedate", "binstall", "blastserv", "bnextserv", "blastrep", "bnextrep"},
	}

	Companies = Entity{Name: "company", Table: "PQ_co", PrimaryKey: "coid"}

	Invoices = Entity{Name: "invoice", Table: "PQ_invoice", PrimaryKey: "invid"}

	Inspections = Entity{
		Name:            "inspection",
		Table:           "PQ_inspections",
		PrimaryKey:      "inid",
		DateTimeColumns: []string{"indts", "incomdts"},
	}

	Tasks = Entity{
		Name:            "task",
		Table:           "PQ_tasks",
		PrimaryKey:      "tid",
		DateTimeColumns: []string{"tdts"},
	}

	Events = Entity{
		Name:            "event",
		Table:           "PQ_events",
		PrimaryKey:      "eid",
		DateTimeColumns: []string{"estartdts", "eenddts"},
	}

	Contingencies = Entity{Name: "contingency", Table: "PQ_contingency", PrimaryKey: "ctid"}

	LeadPhotos = Entity{
		Name:            "lead photo",
		Table:           "PQ_leadPhotos",
		PrimaryKey:      "lpid",
		DateTimeColumns: []string{"lpdts", "lpphotodtscc"},
	}

	Photos = Entity{
		Name:            "photo",
		Table:           "PQ_photos",
		PrimaryKey:      "photoid",
		DateTimeColumns: []string{"photodts", "photodtscc"},
	}

	// Jobs, insurance claims and work orders are only read through joins;
	// no HTTP resource exposes them.
	Jobs            = Entity{Name: "job", Table: "PQ_job", PrimaryKey: "jid"}
	InsuranceClaims = Entity{Name: "insurance claim", Table: "PQ_insuranceClaims", PrimaryKey: "icid"}
	WorkOrders      = Entity{Name: "work order", Table: "PQ_workOrders", PrimaryKey: "woid"}
)
