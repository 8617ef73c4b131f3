package common

const (
	// Pending-work hashes and their dead-letter counterparts. An item key is
	// unique within its hash; presence in the pending hash is the only signal
	// that the item awaits processing.
	AdminRequestsKey     = "tuq:admin_requests"
	AdminRequestFailsKey = "tuq:admin_request_fails"

	PendingConfirmationEmailsKey = "tuq:pending_confirmation_emails"
	FailedConfirmationEmailsKey  = "tuq:failed_confirmation_emails"

	PendingPapersKey       = "tuq:pending_papers"
	ErrorUnmarkedPapersKey = "tuq:error_unmarked_papers"

	// Denormalized course snapshots keyed by course id.
	KnownCoursesKey = "tuq:known_courses"

	// Sorted set: course id -> popularity score. Derived, rebuildable.
	CourseRankKey = "tuq:all_course_rank"

	// Dedup sets mirroring the relational store's uniqueness constraints.
	UsernamesSetKey = "tuq:usernames"
	EmailsSetKey    = "tuq:emails"
	PhonesSetKey    = "tuq:phones"

	// Separator inside a confirmation-email payload: "<user_id> %% <fullname>".
	ConfirmationPayloadSep = " %% "
)
