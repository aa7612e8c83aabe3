/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/sorynturda/link-sharing/cmd"

func main() {
	cmd.Execute()
}
