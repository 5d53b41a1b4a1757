// Package authz maps a principal's raw group memberships to a concrete
// permission set using the platform authorization configuration.
//
// Resolution is a pure function: it expands groups through the
// inheritance graph, unions grants (with a wildcard token that absorbs
// in any union), and checks admin-group membership. The same
// (groups, config) pair always yields the same PermissionSet, which is
// what makes per-request recomputation safe without caching.
package authz

import (
	"fmt"
	"sort"
)

// Wildcard is the grant token meaning "all resources of this kind".
// Union with the wildcard always yields the wildcard.
const Wildcard = "*"

// Group is a named grant carrier with optional parent groups. A group's
// effective grants are the union of its own grants and all ancestors'.
type Group struct {
	// Inherits lists parent group names. The inheritance graph must be
	// acyclic; Config.Validate enforces this at load time.
	Inherits []string `yaml:"inherits"`

	// Apps lists chat application IDs this group may use, or the
	// wildcard token.
	Apps []string `yaml:"apps"`

	// Models lists model IDs this group may use, or the wildcard token.
	Models []string `yaml:"models"`
}

// Config is the platform authorization configuration. It is loaded with
// the rest of the configuration, validated once, and read-only afterwards.
type Config struct {
	Groups map[string]Group `yaml:"groups"`

	// AdminGroups names the groups whose members are administrators.
	AdminGroups []string `yaml:"admin_groups"`

	// DefaultGroup is assigned to principals with no groups of their
	// own (e.g. anonymous) before expansion.
	DefaultGroup string `yaml:"default_group"`
}

// Validate checks the group inheritance graph for cycles. Group names
// referenced in Inherits but never defined are permitted: identity
// providers routinely report groups the platform does not configure,
// and an unconfigured group simply carries no grants.
func (c *Config) Validate() error {
	const (
		white = iota // unvisited
		gray         // on the current path
		black        // fully explored
	)

	color := make(map[string]int, len(c.Groups))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch color[name] {
		case gray:
			return fmt.Errorf("group inheritance cycle: %v -> %s", path, name)
		case black:
			return nil
		}

		group, ok := c.Groups[name]
		if !ok {
			return nil
		}

		color[name] = gray
		for _, parent := range group.Inherits {
			if err := visit(parent, append(path, name)); err != nil {
				return err
			}
		}
		color[name] = black
		return nil
	}

	// Iterate in sorted order so validation errors are deterministic.
	names := make([]string, 0, len(c.Groups))
	for name := range c.Groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := visit(name, nil); err != nil {
			return err
		}
	}
	return nil
}

// GrantSet is a set of resource IDs, or the wildcard covering all of them.
type GrantSet struct {
	All bool
	IDs map[string]struct{}
}

// Allows reports whether the set covers the given resource ID.
func (g GrantSet) Allows(id string) bool {
	if g.All {
		return true
	}
	_, ok := g.IDs[id]
	return ok
}

// add unions a configured grant list into the set. The wildcard
// short-circuits the set to "all" for the remainder of resolution.
func (g *GrantSet) add(grants []string) {
	if g.All {
		return
	}
	for _, grant := range grants {
		if grant == Wildcard {
			g.All = true
			g.IDs = nil
			return
		}
		if g.IDs == nil {
			g.IDs = make(map[string]struct{})
		}
		g.IDs[grant] = struct{}{}
	}
}

// PermissionSet is the concrete permission derivation for one principal.
// It is recomputed per request and never persisted.
type PermissionSet struct {
	Apps    GrantSet
	Models  GrantSet
	IsAdmin bool
}

// AllowsApp reports whether the principal may use the chat application.
func (p PermissionSet) AllowsApp(id string) bool { return p.Apps.Allows(id) }

// AllowsModel reports whether the principal may use the model.
func (p PermissionSet) AllowsModel(id string) bool { return p.Models.Allows(id) }

// Resolve maps raw group memberships to a PermissionSet. Principals with
// no groups fall back to the configured default group before expansion.
func Resolve(rawGroups []string, cfg *Config) PermissionSet {
	if len(rawGroups) == 0 && cfg.DefaultGroup != "" {
		rawGroups = []string{cfg.DefaultGroup}
	}

	effective := ExpandGroups(rawGroups, cfg)

	var perms PermissionSet
	for name := range effective {
		if group, ok := cfg.Groups[name]; ok {
			perms.Apps.add(group.Apps)
			perms.Models.add(group.Models)
		}
	}

	for _, admin := range cfg.AdminGroups {
		if _, ok := effective[admin]; ok {
			perms.IsAdmin = true
			break
		}
	}

	return perms
}

// ExpandGroups computes the closed set of effective groups: every raw
// group plus, transitively, every ancestor it inherits from. Unknown
// group names are retained (they still count for admin-group matching)
// but contribute no grants and have no parents.
func ExpandGroups(rawGroups []string, cfg *Config) map[string]struct{} {
	effective := make(map[string]struct{}, len(rawGroups))

	var walk func(name string)
	walk = func(name string) {
		if _, seen := effective[name]; seen {
			return
		}
		effective[name] = struct{}{}
		if group, ok := cfg.Groups[name]; ok {
			for _, parent := range group.Inherits {
				walk(parent)
			}
		}
	}

	for _, name := range rawGroups {
		walk(name)
	}
	return effective
}
