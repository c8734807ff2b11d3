package utils

func ToStringPtr(s string) *string {
	return &s
}

func ToInt32Ptr(i int32) *int32 {
	return &i
}
