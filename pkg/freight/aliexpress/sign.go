package aliexpress

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
)

// Sign computes the open-platform request signature. The construction
// is fixed by the remote protocol and must be bit-reproducible: drop
// any "sign" parameter, sort the remaining keys bytewise, concatenate
// as key+value, wrap the whole string with the app secret on both
// sides, MD5, uppercase hex. The gateway rejects any mismatch outright.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "sign" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(secret)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params[k])
	}
	b.WriteString(secret)

	sum := md5.Sum([]byte(b.String()))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
