package cache

// GenerateKey creates a cache key with prefix and ID. An empty prefix leaves the ID as is.
func GenerateKey(prefix string, id string) string {
	if prefix == "" {
		return id
	}
	return prefix + ":" + id
}
