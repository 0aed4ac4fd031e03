package service

import "errors"

// errNoChange 更新不会修改任何内容时中止，不产生写入
var errNoChange = errors.New("no change")
