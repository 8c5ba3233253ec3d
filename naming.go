package rpq

// StageName generates a string such as
// `  => users.Create(["users"]) =>`
// from the inputs StageName(true, "users.Create", []string{"users"}, true).
// Collections name the store collections the stage reads or writes.
func StageName(usesInParam bool, name string, collections []string, returnsAValue bool) string {

	inArrow := "  => "
	if !usesInParam {
		inArrow = ""
	}

	outArrow := " =>"
	if !returnsAValue {
		outArrow = ""
	}

	return inArrow + FuncStr(name, collections...) + outArrow
}

// FuncStr generates a string such as
// `users.List(["users"], ["audit"])`
// from the inputs FuncStr("users.List", "users", "audit")
func FuncStr(name string, collections ...string) string {

	params := "("
	for i, c := range collections {
		params += "[\"" + c + "\"]"
		if i < len(collections)-1 {
			params += ", "
		}
	}
	params += ")"

	return name + params
}
