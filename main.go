// Package main はアプリケーションのエントリーポイントを提供します。
package main

import "github.com/stsysd/tudu/cmd"

func main() {
	cmd.Execute()
}
