package trace

// Built-in CUE schemas, one per record type. Each schema restates the
// required header fields and adds the type-specific ones. Every schema
// is an open struct: unknown additional fields pass validation, so
// producers can evolve records additively without breaking consumers.

const launchStartSchema = `
{
	record_type:    "launch_start"
	schema_version: 1
	run_id:         string & != ""
	timestamp?:     string

	launch_id:       string & != ""
	attempt:         int & >=1
	plan_identity:   string & =~"^[0-9a-f]{64}$"
	inputs_identity: string & =~"^[0-9a-f]{64}$"
	combine_mode:    "by_position" | "combinatorial"
	total_runs:      int & >=0
	max_runs?:       int & >=1
	...
}
`

const launchEndSchema = `
{
	record_type:    "launch_end"
	schema_version: 1
	run_id:         string & != ""
	timestamp?:     string

	launch_id: string & != ""
	attempt:   int & >=1
	status:    "succeeded" | "failed" | "partial" | "aborted"
	succeeded: int & >=0
	failed:    int & >=0
	total:     int & >=0
	...
}
`

const runStartSchema = `
{
	record_type:    "run_start"
	schema_version: 1
	run_id:         string & != ""
	timestamp?:     string

	pipeline_id: string & =~"^plid-[0-9a-f]{64}$"
	run_index:   int & >=0
	values?: {...}
	launch_id?: string & != ""
	attempt?:   int & >=1
	...
}
`

const runEndSchema = `
{
	record_type:    "run_end"
	schema_version: 1
	run_id:         string & != ""
	timestamp?:     string

	status: "succeeded" | "failed" | "aborted"
	error?: string
	...
}
`

const nodeExecutionSchema = `
{
	record_type:    "node_execution"
	schema_version: 1
	run_id:         string & != ""
	timestamp?:     string

	node_uuid:   string & != ""
	processor:   string & != ""
	status:      "succeeded" | "failed"
	duration_ms: int & >=0
	error?:      string
	...
}
`
