package core

// CommonDirPrefix returns the longest common path prefix of the given
// file names that ends exactly at a path separator, and whether one
// exists. A name that is itself a prefix of another, like "test"
// against "test/x", still counts as sharing "test/".
func CommonDirPrefix(files []string) (string, bool) {
	if len(files) == 0 {
		return "", false
	}
	prefix := files[0] + "/"
	for _, file := range files[1:] {
		i := 0
		for i < len(prefix) {
			// names shorter than the prefix behave as if padded
			// with separators, so "test" matches "test/x"
			b := byte('/')
			if i < len(file) {
				b = file[i]
			}
			a := prefix[i]
			if a != b {
				break
			}
			if a == '/' {
				i++
				break
			}
			i++
		}
		prefix = prefix[:i]
	}
	if prefix == "" || prefix[len(prefix)-1] != '/' {
		return "", false
	}
	return prefix, true
}
