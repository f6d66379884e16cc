package database

const (
	// User queries
	queryInsertUser = `
		INSERT INTO users (username, usergroup, newpoints) VALUES (?, ?, 0)
		RETURNING uid, username, usergroup, newpoints, created_at, updated_at`

	queryGetUserById = `
		SELECT uid, username, usergroup, newpoints, created_at, updated_at
		FROM users
		WHERE uid = ?`

	queryGetUserByName = `
		SELECT uid, username, usergroup, newpoints, created_at, updated_at
		FROM users
		WHERE username = ? COLLATE NOCASE`

	queryGetAllUsers = `
		SELECT uid, username, usergroup, newpoints, created_at, updated_at
		FROM users
		ORDER BY username`

	// Balance queries. Updates are additive relative to the stored value so
	// concurrent writers never lose deltas; per-row atomicity comes from
	// statement atomicity in SQLite.
	queryGetBalance = `
		SELECT newpoints
		FROM users
		WHERE uid = ?`

	queryApplyDelta = `
		UPDATE users
		SET newpoints = ROUND(newpoints + CAST(? AS NUMERIC), 6), updated_at = CURRENT_TIMESTAMP
		WHERE uid = ?`

	queryApplyDeltaByName = `
		UPDATE users
		SET newpoints = ROUND(newpoints + CAST(? AS NUMERIC), 6), updated_at = CURRENT_TIMESTAMP
		WHERE username = ? COLLATE NOCASE`

	queryApplyGroupDelta = `
		UPDATE users
		SET newpoints = ROUND(newpoints + CAST(? AS NUMERIC), 6), updated_at = CURRENT_TIMESTAMP
		WHERE usergroup = ?`

	// Forum rule queries
	queryGetForumRule = `
		SELECT rid, fid, name, rate, minview, minpost, created_at
		FROM forumrules
		WHERE fid = ?`

	queryGetAllForumRules = `
		SELECT rid, fid, name, rate, minview, minpost, created_at
		FROM forumrules
		ORDER BY fid`

	queryUpsertForumRule = `
		INSERT INTO forumrules (fid, name, rate, minview, minpost)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(fid) DO UPDATE SET
			name = excluded.name,
			rate = excluded.rate,
			minview = excluded.minview,
			minpost = excluded.minpost`

	queryDeleteForumRule = `
		DELETE FROM forumrules WHERE fid = ?`

	// Group rule queries
	queryGetGroupRule = `
		SELECT rid, gid, name, rate, allowance, period, lastpaid, created_at
		FROM grouprules
		WHERE gid = ?`

	queryGetAllGroupRules = `
		SELECT rid, gid, name, rate, allowance, period, lastpaid, created_at
		FROM grouprules
		ORDER BY gid`

	queryUpsertGroupRule = `
		INSERT INTO grouprules (gid, name, rate, allowance, period, lastpaid)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(gid) DO UPDATE SET
			name = excluded.name,
			rate = excluded.rate,
			allowance = excluded.allowance,
			period = excluded.period`

	queryDeleteGroupRule = `
		DELETE FROM grouprules WHERE gid = ?`

	queryTouchGroupAllowance = `
		UPDATE grouprules SET lastpaid = ? WHERE gid = ?`

	// Setting queries. AllSettings orders by title to keep display order
	// deterministic for any consumer enumerating the cache.
	queryGetSetting = `
		SELECT sid, plugin, name, title, description, type, value, disporder
		FROM settings
		WHERE name = ?`

	queryGetAllSettings = `
		SELECT sid, plugin, name, title, description, type, value, disporder
		FROM settings
		ORDER BY title`

	queryUpsertSetting = `
		INSERT INTO settings (plugin, name, title, description, type, value, disporder)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			plugin = excluded.plugin,
			title = excluded.title,
			description = excluded.description,
			type = excluded.type,
			value = excluded.value,
			disporder = excluded.disporder`

	queryDeleteSetting = `
		DELETE FROM settings WHERE name = ?`

	// Audit log queries
	queryInsertAuditLog = `
		INSERT INTO auditlog (id, uid, username, action, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryCountAuditSince = `
		SELECT COUNT(*)
		FROM auditlog
		WHERE uid = ? AND action = ? AND created_at >= ?`

	queryRecentAuditLog = `
		SELECT id, uid, username, action, data, created_at
		FROM auditlog
		WHERE uid = ? AND action = ?
		ORDER BY created_at DESC
		LIMIT ?`

	// Datacache queries (durable KV blobs for the rule/setting snapshots)
	queryReadCache = `
		SELECT cache FROM datacache WHERE title = ?`

	queryUpdateCache = `
		INSERT INTO datacache (title, cache, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(title) DO UPDATE SET
			cache = excluded.cache,
			updated_at = excluded.updated_at`

	queryDeleteCache = `
		DELETE FROM datacache WHERE title = ?`
)
