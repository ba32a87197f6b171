package sqlinline

// The balance counter is only ever mutated through these conditional
// single-statement updates; application code never read-modify-writes it.

const QDebitBalance = `--sql 59cd6a0c-f189-4980-8d34-f5e5729ab179
update users
set remaining_generations = remaining_generations - $2::int,
    updated_at = now()
where id = $1::bigint and remaining_generations >= $2::int
returning remaining_generations;
`

const QCreditBalance = `--sql f0871abf-dd08-44de-973f-3392f21238ff
update users
set remaining_generations = remaining_generations + $2::int,
    updated_at = now()
where id = $1::bigint
returning remaining_generations;
`

const QSelectBalance = `--sql a1fbcff0-52cd-426b-b024-6a198423d355
select remaining_generations
from users
where id = $1::bigint;
`
