package main

import "ai_blog_writer/cmd"

func main() {
	cmd.Execute()
}
