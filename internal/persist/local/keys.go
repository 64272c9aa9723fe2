package local

// Collection and index key prefixes. Record ids are UUIDs and page/user
// scopes are UUIDs too, so ':' never appears inside a key segment.
const (
	userPrefix       = "usr"
	userDevicePrefix = "usrdev" // deviceID -> user id (unique)

	pagePrefix     = "pag"
	pageCodePrefix = "pagcode" // code -> page id (unique)

	mediaPrefix     = "med"
	mediaPagePrefix = "medpag" // pageID:mediaID -> media id
	mediaUserPrefix = "medusr" // userID:mediaID -> media id

	messagePrefix     = "msg"
	messagePagePrefix = "msgpag" // pageID:messageID -> message id
	messageUserPrefix = "msgusr" // userID:messageID -> message id

	adminPrefix         = "adm"
	adminUsernamePrefix = "admusr" // username -> admin id (unique)

	blobPrefix     = "blob"
	blobMetaPrefix = "blobmeta"
)

// recordKey addresses a primary record by id.
func recordKey(prefix, id string) []byte {
	return []byte(prefix + ":" + id)
}

// indexKey addresses a unique secondary index entry.
func indexKey(prefix, value string) []byte {
	return []byte(prefix + ":" + value)
}

// scopedKey addresses a non-unique index entry under a scope (page or user).
func scopedKey(prefix, scope, id string) []byte {
	return []byte(prefix + ":" + scope + ":" + id)
}

// scopedPrefix is the iteration prefix for all index entries under a scope.
func scopedPrefix(prefix, scope string) []byte {
	return []byte(prefix + ":" + scope + ":")
}

// collectionPrefix is the iteration prefix for a whole collection.
func collectionPrefix(prefix string) []byte {
	return []byte(prefix + ":")
}
