// Package task runs periodic background jobs. A Scheduler ticks on a fixed
// interval and runs every registered Job in order; the expiry check job that
// warns about tokens nearing their expiry date is the job shipped with the
// server.
package task
