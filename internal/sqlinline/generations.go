package sqlinline

const QInsertGeneration = `--sql 12f18f7d-7a89-4b03-918e-cb8bd1b8892f
insert into generations (id, user_id, kind, status, input_refs, chat_id, message_id, created_at, updated_at)
values ($1::uuid, $2::bigint, $3::text, $4::text, $5::jsonb, $6::bigint, $7::int, now(), now());
`

const QSelectGeneration = `--sql 152d539b-6c54-42f5-92db-1f3916a59258
select id, user_id, kind, status, input_refs, output_refs, error_message, provider_ref, chat_id, message_id, cost_paid, created_at, updated_at
from generations
where id = $1::uuid;
`

const QMarkGenerationProcessing = `--sql 29fcaa15-e548-4144-abcf-150a63d10320
update generations
set status = 'PROCESSING',
    cost_paid = $2::int,
    updated_at = now()
where id = $1::uuid and status not in ('COMPLETED', 'FAILED');
`

const QSetGenerationProviderRef = `--sql e9384d8a-a121-4352-8833-f440e887d628
update generations
set provider_ref = $2::text,
    updated_at = now()
where id = $1::uuid and status not in ('COMPLETED', 'FAILED');
`

const QMarkGenerationCompleted = `--sql 138f5653-0568-4314-ba86-dc2d3f2a12f7
update generations
set status = 'COMPLETED',
    output_refs = $2::jsonb,
    updated_at = now()
where id = $1::uuid and status not in ('COMPLETED', 'FAILED');
`

const QMarkGenerationFailed = `--sql e456100d-cc97-495e-8a2f-30ca39528a96
update generations
set status = 'FAILED',
    error_message = $2::text,
    updated_at = now()
where id = $1::uuid and status not in ('COMPLETED', 'FAILED');
`
