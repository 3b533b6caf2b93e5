package postgres

const queryInsertApplication = `
INSERT INTO applications (id, owner_id, company, role, status, applied_date, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

const queryGetApplication = `
SELECT id, owner_id, company, role, status, applied_date, notes, created_at, updated_at
FROM applications
WHERE id = $1
`

const queryUpdateApplication = `
UPDATE applications
SET company = $1, role = $2, status = $3, applied_date = $4, notes = $5, updated_at = $6
WHERE id = $7
`

const queryDeleteApplication = `
DELETE FROM applications
WHERE id = $1
RETURNING id`

// Empty status/search parameters disable the corresponding predicate so a
// single statement covers every filter combination. Search matches company
// OR role as a case-insensitive substring; status is an exact match.
const queryListApplications = `
SELECT id, owner_id, company, role, status, applied_date, notes, created_at, updated_at
FROM applications
WHERE owner_id = $1
  AND ($2 = '' OR status = $2)
  AND ($3 = '' OR company ILIKE $3 OR role ILIKE $3)
ORDER BY applied_date DESC, created_at ASC
`

const queryCountByStatus = `
SELECT status, COUNT(*)
FROM applications
WHERE owner_id = $1
GROUP BY status
`

const queryListOwners = `
SELECT DISTINCT owner_id
FROM applications
ORDER BY owner_id
`

const queryInsertStatsSnapshot = `
INSERT INTO stats_snapshots (id, owner_id, total, applied, interview, offer, rejected, captured_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

const queryListStatsSnapshots = `
SELECT id, owner_id, total, applied, interview, offer, rejected, captured_at
FROM stats_snapshots
WHERE owner_id = $1
ORDER BY captured_at DESC
LIMIT $2
`

const queryResolveToken = `
SELECT owner_id
FROM api_tokens
WHERE token_hash = $1
`

const queryTryAdvisoryLock = `
SELECT pg_try_advisory_lock($1)
`

const queryReleaseAdvisoryLock = `
SELECT pg_advisory_unlock($1)
`
