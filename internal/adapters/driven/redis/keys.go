package redis

// keyPrefix namespaces every key written by this package
const keyPrefix = "docqa:"

func lockKey(name string) string {
	return keyPrefix + "lock:" + name
}
