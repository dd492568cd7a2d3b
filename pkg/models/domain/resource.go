package domain

// Resource is one inventoried cloud resource. Specs is the resource-type
// specific attribute bag produced by the inventory sync (firewall rules,
// tags, backup state, node pools, ...); this core only reads it.
type Resource struct {
	ID          string
	Type        string
	Label       string
	Region      string
	PlanType    string
	MonthlyCost float64
	Status      string
	Specs       map[string]any
}

const (
	ResourceTypeInstance  = "instance"
	ResourceTypeFirewall  = "firewall"
	ResourceTypeVolume    = "volume"
	ResourceTypeDatabase  = "database"
	ResourceTypeBucket    = "bucket"
	ResourceTypeCluster   = "lke_cluster"
	ResourceTypeAllScopes = "*"
)
