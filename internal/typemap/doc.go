// Package typemap resolves the target type mapping of scalar IR nodes.
//
// A TypeMapping names the store type a value is sent as, its logical Kind,
// and an optional ValueConverter applied before the value reaches the
// database. Mappings compare by store type and converter identity, which is
// the rule the text generator uses when deciding whether two references to
// the same parameter may share one placeholder.
//
// The Source interface is the collaborator boundary through which the
// frontend (or the catalog loader) obtains mappings. DefaultSource covers the
// logical types a catalog may declare.
package typemap
