// Package annotation models the annotation metadata that bean candidates
// and injection points carry: which annotations are declared or
// inherited, their member values, and the meta-annotations (stereotypes)
// they are themselves annotated with.
package annotation

// Well-known annotation names understood by the qualifiers package.
const (
	Named              = "Named"
	Primary            = "Primary"
	Any                = "Any"
	Type               = "Type"
	Qualifier          = "Qualifier"
	InterceptorBinding = "InterceptorBinding"
	Default            = "Default"
	NonBinding         = "NonBinding"
)

// Well-known member names.
const (
	// ValueMember is the default member of an annotation.
	ValueMember = "value"
	// BindMembers holds, on an InterceptorBinding value, the nested
	// annotation whose members must match for the binding to apply.
	BindMembers = "bindMembers"
)
