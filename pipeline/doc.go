/*
Package pipeline runs the numbered database stages and records what each execution did.

A Stage couples a versioned Definition with a typed Handler. ExecuteStage runs it inside a
Bundle, optionally retrying the whole stage, and hands a Report with the input, output, timing
and error to the Bundle's Reporter. Reporters keep reports in memory, in the stage_reports
table, or fan out to several destinations with Tee.

RetryRateLimited is the per-request counterpart used inside stages: it only retries provider
429 responses, with the slow exponential schedule the upstream quotas need.
*/
package pipeline
