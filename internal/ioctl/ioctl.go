// Package ioctl encodes and performs ioctl system calls for the spidev
// character device.
package ioctl

import (
	"fmt"
	"reflect"
	"syscall"
)

// Mode is the data direction of an ioctl command.
type Mode uint8

// Directions, as encoded in the top bits of a command word.
const (
	None Mode = iota
	Write
	Read
)

// Command is an encoded ioctl command word.
type Command uintptr

func (c Command) String() string {
	var (
		mode = Mode(c >> 30 & 0x03)
		size = c >> 16 & 0x3fff
		cmd  = c & 0xffff
		str  string
	)
	if mode&Write > 0 {
		str += " write"
	}
	if mode&Read > 0 {
		str += " read "
	}
	return fmt.Sprintf("ioctl%s (%d bytes) 0x%04x", str, size, uintptr(cmd))
}

// Pointer encodes a command word for a transfer the size of the value ref
// points at.
func Pointer(mode Mode, ref interface{}, cmd uintptr) Command {
	size := uint16(reflect.TypeOf(ref).Elem().Size())
	return Command(mode)<<30 | Command(size)<<16 | Command(cmd)
}

// Do executes the ioctl call with ptr as argument.
func Do(fd uintptr, command Command, ptr interface{}) error {
	var p uintptr
	if ptr != nil {
		p = reflect.ValueOf(ptr).Pointer()
	}

	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, fd, uintptr(command), p)
	if errno != 0 {
		return fmt.Errorf("ioctl %s failed: %v", command, errno)
	}
	return nil
}
