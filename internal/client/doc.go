/*
Package client talks to a running flashfile server.

Requests go through resty on top of a retryablehttp transport. Only
connection failures are retried: once the server has answered, a script
may already have touched the volume, so the response is returned as is.

	c := client.New(client.DefaultConfig("http://localhost:8000"))
	res, err := c.Run(ctx, "file.list()", 0)
*/
package client
