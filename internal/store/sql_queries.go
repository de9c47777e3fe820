// SPDX-License-Identifier: Apache-2.0

package store

const (
	upsertRequest = `
		INSERT INTO requests (
			id,
			method,
			url,
			status_code,
			content_type,
			size_bytes,
			page,
			started_at,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			method       = excluded.method,
			url          = excluded.url,
			status_code  = excluded.status_code,
			content_type = excluded.content_type,
			size_bytes   = excluded.size_bytes,
			page         = excluded.page,
			started_at   = excluded.started_at,
			updated_at   = excluded.updated_at;`

	getSingleRequest = `
		SELECT
			id,
			method,
			url,
			status_code,
			content_type,
			size_bytes,
			page,
			started_at,
			updated_at
		FROM requests
		WHERE id = ?;`

	getRequestsSince = `
		SELECT
			id,
			method,
			url,
			status_code,
			content_type,
			size_bytes,
			page,
			started_at,
			updated_at
		FROM requests
		WHERE updated_at > ?
		ORDER BY updated_at;`

	deleteRequest = `
		DELETE FROM requests
		WHERE id = ?;`

	upsertTimings = `
		INSERT INTO request_timings (
			request_id,
			dns_ms,
			connect_ms,
			tls_ms,
			ttfb_ms,
			total_ms
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (request_id) DO UPDATE SET
			dns_ms     = excluded.dns_ms,
			connect_ms = excluded.connect_ms,
			tls_ms     = excluded.tls_ms,
			ttfb_ms    = excluded.ttfb_ms,
			total_ms   = excluded.total_ms;`

	getTimings = `
		SELECT
			request_id,
			dns_ms,
			connect_ms,
			tls_ms,
			ttfb_ms,
			total_ms
		FROM request_timings
		WHERE request_id = ?;`

	deleteHeaders = `
		DELETE FROM request_headers
		WHERE request_id = ?;`

	insertHeader = `
		INSERT INTO request_headers (request_id, name, value)
		VALUES (?, ?, ?);`

	getHeaders = `
		SELECT name, value
		FROM request_headers
		WHERE request_id = ?
		ORDER BY name;`

	upsertQueueEntry = `
		INSERT INTO sync_queue (entity_type, entity_id, action, enqueued_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (entity_type, entity_id) DO UPDATE SET
			action      = excluded.action,
			enqueued_at = excluded.enqueued_at;`

	getAllQueueEntries = `
		SELECT entity_type, entity_id, action, enqueued_at
		FROM sync_queue
		ORDER BY enqueued_at;`

	deleteQueueEntry = `
		DELETE FROM sync_queue
		WHERE entity_type = ? AND entity_id = ?;`

	clearQueue = `
		DELETE FROM sync_queue;`

	getMetaValue = `
		SELECT value
		FROM sync_meta
		WHERE key = ?;`

	setMetaValue = `
		INSERT INTO sync_meta (key, value)
		VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value;`
)
