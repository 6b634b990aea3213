package badgerfs

// Key namespace design
// ====================
//
// BadgerDB is a key-value store, so prefixed keys organize the different data
// types into logical namespaces:
//
// Data Type      Prefix   Key Format              Value Type
// =================================================================
// File Records   "f:"     f:<path>                fileRecord (XDR)
// Children Map   "c:"     c:<dirPath>:<name>      empty
// File Content   "d:"     d:<path>                raw bytes
//
// Paths are clean, slash-absolute names; the root record lives at "f:/".
// Valid names never contain ":", so the child separator is unambiguous and
// the prefix "c:<dirPath>:" scans exactly one directory's entries.
const (
	prefixRecord  = "f:"
	prefixChild   = "c:"
	prefixContent = "d:"
)

// keyRecord generates the key for a file or directory record.
func keyRecord(path string) []byte {
	return []byte(prefixRecord + path)
}

// keyChild generates the key for one directory entry.
func keyChild(dirPath, name string) []byte {
	return []byte(prefixChild + dirPath + ":" + name)
}

// keyChildPrefix generates the prefix that scans all entries of a directory.
func keyChildPrefix(dirPath string) []byte {
	return []byte(prefixChild + dirPath + ":")
}

// keyContent generates the key for a file's content bytes.
func keyContent(path string) []byte {
	return []byte(prefixContent + path)
}
