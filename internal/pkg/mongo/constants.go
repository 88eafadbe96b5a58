package mongo

const (
	store    = "slidego"
	jobTable = "jobs"
)
