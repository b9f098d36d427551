package replication

import "crypto/rand"

const replIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateReplID returns a 40-character alphabetic replication ID, the form
// real Redis uses for master_replid. It is generated once per process and
// held for the server's lifetime.
func GenerateReplID() string {
	b := make([]byte, 40)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing means the OS entropy source is broken; there is
		// no sane fallback that still looks like a replid, so panic rather
		// than hand out a predictable one.
		panic("replication: crypto/rand unavailable: " + err.Error())
	}
	for i, v := range b {
		b[i] = replIDAlphabet[int(v)%len(replIDAlphabet)]
	}
	return string(b)
}
