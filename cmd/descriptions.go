package cmd

const DESCRIPTION = `
Daylog mails each user a short digest at the same local time every day,
asking what they did and quoting what they wrote a week, a month and a
year ago. Replies to the digest are read back from a mailbox and stored
as that day's entry.
`

const (
	RunDescription = `The run command starts the scheduler daemon. It wakes at
every user's configured local time, sends their digest and sleeps
until the next one. SIGHUP or "daylog reload" makes it re-read the
user list; SIGTERM or "daylog stop" shuts it down.

Example:
        daylog -c /etc/daylog/config.yaml run

`
	SendDescription = `The send command composes and sends one digest right away,
independent of the daemon's schedule.

Example:
        daylog -c config.yaml send --username alice --dry-run
        daylog -c config.yaml send -u alice --date 2021-07-04

`
	IngestDescription = `The ingest command reads new mail from the configured
maildir or mbox, verifies that each reply answers a digest daylog sent,
and stores the cleaned-up text as the entry for that digest's date.

Example:
        daylog -c config.yaml ingest

`
	DeliverDescription = `The deliver command reads one message from standard input
and files it into the configured maildir, so daylog can be used as the
mail delivery agent for its own address.

Example:
        daylog -c config.yaml deliver < message.eml

`
	ReloadDescription = `The reload command asks the running daemon to re-read its
users and waits until it has. If the control socket is unreachable it
falls back to sending SIGHUP to the process in the PID file.

Example:
        daylog -c config.yaml reload

`
	StopDescription = `The stop command sends SIGTERM to the running daemon and
waits for it to exit.

Example:
        daylog -c config.yaml stop

`
	ScheduleDescription = `The schedule command lists the upcoming wake targets and
the users that will be sent a digest at each.

Example:
        daylog -c config.yaml schedule

`
	UserAddDescription = `The user add command creates a user, or updates it if the
username already exists. The timezone is an IANA zone name and the
time is the local time of day the digest should arrive.

Example:
        daylog -c config.yaml user add alice alice@example.com America/Los_Angeles 21:30

`
	KeygenDescription = `The keygen command creates the secret key used to sign
digest Message-IDs. Replies to digests signed with an older key are
rejected, so an existing key is only replaced with --force.

Example:
        daylog -c config.yaml keygen

`
)
