package domain

// AccessClass is the closed set of relationships a user can have to a report.
// Classify returns exactly one class; every permission check pattern-matches
// on it instead of re-branching on role membership.
type AccessClass int

const (
	// AccessNone denies everything.
	AccessNone AccessClass = iota
	// AccessFull is granted to shogun-admins: read all, edit, upload, chat.
	AccessFull
	// AccessAssigned is the report's shogun: same as full, scoped to this report.
	AccessAssigned
	// AccessOwner is the report's client: read own report, upload, chat, no edits.
	AccessOwner
	// AccessSponsor reads and participates in chat, no edits, no report uploads.
	AccessSponsor
)

func (a AccessClass) String() string {
	switch a {
	case AccessFull:
		return "full"
	case AccessAssigned:
		return "assigned"
	case AccessOwner:
		return "owner"
	case AccessSponsor:
		return "sponsor"
	default:
		return "none"
	}
}

// Classify computes the requester's access class for a report. Roles are
// derived from the persisted user record on every call — token claims are
// only trusted for identity, never for authorization.
func Classify(r *Report, u *User) AccessClass {
	if r == nil || u == nil {
		return AccessNone
	}
	if DeriveRoles(*u).Has(RoleShogunAdmin) {
		return AccessFull
	}
	switch u.ID {
	case r.ShogunID:
		return AccessAssigned
	case r.ClientID:
		return AccessOwner
	case r.SponsorID:
		if r.SponsorID != "" {
			return AccessSponsor
		}
	}
	return AccessNone
}

// CanRead reports whether the class may view the report at all.
func (a AccessClass) CanRead() bool { return a != AccessNone }

// CanEditProgress reports whether the class may mutate progress/status.
func (a AccessClass) CanEditProgress() bool {
	return a == AccessFull || a == AccessAssigned
}

// CanUploadReportFile reports whether the class may attach files at report
// level. Sponsors participate in chat only.
func (a AccessClass) CanUploadReportFile() bool {
	return a == AccessFull || a == AccessAssigned || a == AccessOwner
}

// CanChat reports whether the class may post to the collaboration thread.
func (a AccessClass) CanChat() bool { return a != AccessNone }
