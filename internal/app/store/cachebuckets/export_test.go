package cachebucketstore

// SetBeforeCommit installs a function that runs after PutAll has staged its
// entries and before it switches the bucket's generation.
func (s *Store) SetBeforeCommit(f func()) { s.beforeCommit = f }
