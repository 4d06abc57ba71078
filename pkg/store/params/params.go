package params

type Store struct {
	Type    string
	MongoDB *MongoDB
}

type MongoDB struct {
	// URI is a MongoDB connection string, e.g. "mongodb://localhost:27017".
	URI string
	// Database is the database holding the projects, version_groups,
	// versions and builds collections.
	Database string
}
