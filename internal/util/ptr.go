package util

// NonEmptyPtr returns nil for the empty string.
func NonEmptyPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func Deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
