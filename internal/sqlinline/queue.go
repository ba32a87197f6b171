package sqlinline

const QEnqueueEntry = `--sql 124150fb-23f2-4f0f-be04-ff638697feb9
insert into queue_entries (id, queue, payload, status, attempts, max_attempts, not_before, created_at, updated_at)
values ($1::uuid, $2::text, $3::jsonb, 'ready', 0, $4::int, now(), now(), now());
`

const QLeaseEntry = `--sql 92d31aaf-abe2-44a0-af2a-2f98d13b4a93
with next_entry as (
    select id
    from queue_entries
    where queue = $1 and status = 'ready' and not_before <= now()
    order by not_before asc, created_at asc
    for update skip locked
    limit 1
),
leased as (
    update queue_entries
    set status = 'leased',
        leased_by = $2::text,
        lease_expires_at = now() + make_interval(secs => $3::float8),
        updated_at = now()
    where id in (select id from next_entry)
    returning id, queue, payload, attempts, max_attempts
)
select * from leased;
`

const QAckEntry = `--sql 16e124be-9e1f-4231-bba5-77cdb3778866
update queue_entries
set status = 'completed',
    leased_by = null,
    lease_expires_at = null,
    finished_at = now(),
    updated_at = now()
where id = $1::uuid and status = 'leased' and leased_by = $2::text;
`

const QSelectLeasedEntry = `--sql b5f343f8-bce7-46c0-b155-1684e456bbba
select attempts, max_attempts
from queue_entries
where id = $1::uuid and status = 'leased' and leased_by = $2::text;
`

const QScheduleEntryRetry = `--sql c85aa7fb-ab7c-4347-848b-b593f772b673
update queue_entries
set status = 'ready',
    attempts = attempts + 1,
    not_before = now() + make_interval(secs => $3::float8),
    last_error = $2::text,
    leased_by = null,
    lease_expires_at = null,
    updated_at = now()
where id = $1::uuid and status = 'leased' and leased_by = $4::text;
`

const QMarkEntryDead = `--sql 8a2dfa55-4327-470e-8a0f-152208e0bd74
update queue_entries
set status = 'dead',
    attempts = attempts + 1,
    last_error = $2::text,
    leased_by = null,
    lease_expires_at = null,
    finished_at = now(),
    updated_at = now()
where id = $1::uuid and status = 'leased' and leased_by = $3::text;
`

const QRequeueExpired = `--sql 6797f990-2096-4128-90b9-6d092683bd08
update queue_entries
set attempts = attempts + 1,
    status = case when attempts + 1 >= max_attempts then 'dead' else 'ready' end,
    not_before = now() + make_interval(secs => least($2::float8 * power(2, attempts), $3::float8)),
    last_error = 'lease expired',
    leased_by = null,
    lease_expires_at = null,
    finished_at = case when attempts + 1 >= max_attempts then now() else null end,
    updated_at = now()
where status = 'leased' and lease_expires_at < $1::timestamptz;
`

const QPurgeEntries = `--sql 6f8af30c-8c1f-4aad-ab1f-725c7254d253
delete from queue_entries
where status in ('completed', 'dead') and finished_at < $1::timestamptz;
`
