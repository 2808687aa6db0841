// Package scopes holds well-known Globus scope strings and helpers for
// turning scope collections into the space-joined form used on the wire.
package scopes

import "strings"

// Globus Auth scopes.
const (
	OpenID  = "openid"
	Profile = "profile"
	Email   = "email"

	ViewIdentities   = "urn:globus:auth:scope:auth.globus.org:view_identities"
	ViewIdentitySet  = "urn:globus:auth:scope:auth.globus.org:view_identity_set"
	ManageProjects   = "urn:globus:auth:scope:auth.globus.org:manage_projects"
	TransferAll      = "urn:globus:auth:scope:transfer.api.globus.org:all"
	GroupsAll        = "urn:globus:auth:scope:groups.api.globus.org:all"
	SearchAll        = "urn:globus:auth:scope:search.api.globus.org:all"
	FlowsManageFlows = "https://auth.globus.org/scopes/eec9b274-0c81-4334-bdc2-54e90e689b9a/manage_flows"
	FlowsViewFlows   = "https://auth.globus.org/scopes/eec9b274-0c81-4334-bdc2-54e90e689b9a/view_flows"
	FlowsRun         = "https://auth.globus.org/scopes/eec9b274-0c81-4334-bdc2-54e90e689b9a/run"
	FlowsRunStatus   = "https://auth.globus.org/scopes/eec9b274-0c81-4334-bdc2-54e90e689b9a/run_status"
	FlowsRunManage   = "https://auth.globus.org/scopes/eec9b274-0c81-4334-bdc2-54e90e689b9a/run_manage"
	FlowsAll         = "https://auth.globus.org/scopes/eec9b274-0c81-4334-bdc2-54e90e689b9a/all"
)

// DefaultRequestedScopes is used when a login flow is started without an
// explicit scope selection.
var DefaultRequestedScopes = []string{OpenID, Profile, Email, TransferAll}

// Join renders a scope collection in the wire format: individual scopes
// joined by single spaces. Empty entries are dropped.
func Join(requested []string) string {
	var parts []string
	for _, scope := range requested {
		if scope = strings.TrimSpace(scope); scope != "" {
			parts = append(parts, scope)
		}
	}
	return strings.Join(parts, " ")
}
